package utils

import (
	"errors"
	"io/fs"
	"log"
	"os"
)

func FileExist(filePath string) bool {
	_, err := os.Stat(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	return true
}

// CreateDirIfNotExist creates dir and any missing parents.
func CreateDirIfNotExist(dir string) error {
	if FileExist(dir) {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
