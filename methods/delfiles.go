package methods

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DeleteFiles 删除文件夹内的所有文件，文件夹不存在时不报错
func DeleteFiles(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取目录失败: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(dirPath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("删除 %s 失败: %w", path, err)
		}
	}
	return nil
}
