package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned for dataset names with no file behind them.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that are not plain file names
	// or have an unsupported extension.
	ErrInvalidName = errors.New("invalid file name")
)

// catalog is one data-directory subfolder and the extensions it serves.
type catalog struct {
	dir       string
	extToType map[string]string
}

// list returns the supported files in the folder. A missing folder is empty.
func (c catalog) list() ([]DataFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DataFile{}, nil
		}
		return nil, err
	}

	files := []DataFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileType, ok := c.extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, DataFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	return files, nil
}

// resolve checks name and returns its path inside the folder.
func (c catalog) resolve(name string) (string, error) {
	// Check for path traversal
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := c.extToType[ext]; !ok {
		return "", fmt.Errorf("%w: unsupported file type %q", ErrInvalidName, ext)
	}

	path := filepath.Join(c.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
