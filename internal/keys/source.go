// Package keys loads and provisions the access token signing keys.
package keys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dtroode/tokenkeeper/internal/model"
)

var _ model.KeySource = (*FileSource)(nil)

// FileSource reads key material from files in a single directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Fetch reads dir/name. Missing files yield model.ErrNotFound.
func (s *FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("key %q: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read key %q: %w", name, err)
	}

	return data, nil
}

// Put writes data to dir/name readable by the owner only.
func (s *FileSource) Put(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key %q: %w", name, err)
	}
	return nil
}

func (s *FileSource) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid key name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
