package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrOutsideRoot = errors.New("path is outside the output directory")

// OutputNode 输出目录中的一项，Path 相对于输出根目录
type OutputNode struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"isDir"`
	Size    int64     `json:"size"`
	Ext     string    `json:"ext"`
	ModTime time.Time `json:"modTime"`
}

// OutputService 浏览与下载地块输出（WorkDir 下）
type OutputService struct {
	RootPath string
}

func NewOutputService(rootPath string) *OutputService {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		absRoot = rootPath
	}
	return &OutputService{RootPath: absRoot}
}

// Resolve 相对路径转为根目录下的绝对路径（防止目录遍历）
func (s *OutputService) Resolve(rel string) (string, error) {
	target := filepath.Join(s.RootPath, filepath.FromSlash(rel))
	r, err := filepath.Rel(s.RootPath, target)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return target, nil
}

// List 列出目录的直接子项（非递归），rel 为空时列出根目录
func (s *OutputService) List(rel string) ([]OutputNode, error) {
	dir, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrInvalid
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	nodes := make([]OutputNode, 0, len(entries))
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		ext := ""
		if !entry.IsDir() {
			ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(entry.Name())), ".")
		}
		relPath, _ := filepath.Rel(s.RootPath, filepath.Join(dir, entry.Name()))
		nodes = append(nodes, OutputNode{
			Name:    entry.Name(),
			Path:    filepath.ToSlash(relPath),
			IsDir:   entry.IsDir(),
			Size:    fi.Size(),
			Ext:     ext,
			ModTime: fi.ModTime(),
		})
	}
	return nodes, nil
}
