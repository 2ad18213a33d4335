package methods

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
)

// PackOutputs 将输出文件打包为 zip，已存在的压缩包会被覆盖
func PackOutputs(files []string, dest string) error {
	if len(files) == 0 {
		return errors.New("no files to pack")
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return err
	}
	z := archiver.NewZip()
	z.OverwriteExisting = true
	return z.Archive(files, dest)
}

// IsArchive 是否为支持解压的压缩包
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".rar":
		return true
	}
	return false
}

// Unpack 解压 zip/rar 到与压缩包同名的目录，返回该目录
func Unpack(src string, destRoot string) (string, error) {
	if !IsArchive(src) {
		return "", errors.New("Unsupported file format")
	}
	fileName := filepath.Base(src)
	unpath := filepath.Join(destRoot, fileName[0:len(fileName)-len(filepath.Ext(src))])
	if _, err := os.Stat(unpath); err == nil {
		// 已解压过
		return unpath, nil
	}
	if err := os.MkdirAll(unpath, os.ModePerm); err != nil {
		return "", err
	}
	if err := archiver.Unarchive(src, unpath); err != nil {
		os.RemoveAll(unpath)
		return "", err
	}
	return unpath, nil
}
