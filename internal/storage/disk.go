// Package storage keeps uploaded image files on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyUpload is returned when the upload carries no bytes.
var ErrEmptyUpload = errors.New("storage: empty upload")

// DiskStore writes uploads under a single directory and returns the stored
// filename as the image reference.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory served as static files.
func (s *DiskStore) Dir() string { return s.dir }

// Save copies r to a new file named "<uuid>_<name>" and returns that name.
func (s *DiskStore) Save(originalName string, r io.Reader) (string, error) {
	ref := uuid.NewString() + "_" + sanitizeName(originalName)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyUpload
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return ref, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *DiskStore) Remove(ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// sanitizeName lowercases the base name and replaces whitespace with dashes.
func sanitizeName(name string) string {
	name = strings.ToLower(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.Join(strings.Fields(name), "-")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "image"
	}
	return name
}
