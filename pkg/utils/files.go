package utils

import (
	"io"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
)

// GetPathInfo resolves relPath and returns it with its parent directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", errors.Wrap(err, "resolve %v", relPath)
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReadSource reads a source file. "-" reads standard input.
func ReadSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrap(err, "read %v", path)
	}

	return string(data), nil
}

// WriteOutput writes text to path, creating the parent directory.
func WriteOutput(path, text string) error {
	_, dir, err := GetPathInfo(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create %v", dir)
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrap(err, "write %v", path)
	}

	return nil
}
