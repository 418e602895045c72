// Package storage handles uploaded videos and produced artifacts on the
// local filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Local struct {
	uploadDir string
	outputDir string
	maxSize   int64
}

func NewLocal(uploadDir, outputDir string, maxSize int64) (*Local, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Local{uploadDir: uploadDir, outputDir: outputDir, maxSize: maxSize}, nil
}

// SaveUpload writes an uploaded video under a fresh uuid name, keeping
// only the original extension.
func (l *Local) SaveUpload(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext
	path := filepath.Join(l.uploadDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	var src io.Reader = r
	if l.maxSize > 0 {
		src = io.LimitReader(r, l.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if l.maxSize > 0 && n > l.maxSize {
		os.Remove(path)
		return "", fmt.Errorf("upload exceeds maximum size of %d bytes", l.maxSize)
	}
	return path, nil
}

// ResolveOutput maps a bare artifact filename to its path under the
// output directory. Names that try to escape the directory are rejected.
func (l *Local) ResolveOutput(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid artifact name: %q", filename)
	}
	path := filepath.Join(l.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("artifact not found: %w", err)
	}
	return path, nil
}

func (l *Local) OutputDir() string { return l.outputDir }

// Remove deletes an uploaded file once processing finished.
func (l *Local) Remove(path string) {
	os.Remove(path)
}
