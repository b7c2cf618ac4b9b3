package fileurl

import (
	"os"
	"path/filepath"
)

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// IsDir determines if the given path is a directory
// IsDir 判断所给路径是否为文件夹
func IsDir(path string) bool {
	s, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// CreatePath creates the parent directory of a file path
// CreatePath 创建文件路径的上级目录
func CreatePath(filePath string, perm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" || IsDir(dir) {
		return nil
	}
	return os.MkdirAll(dir, perm)
}
