// Package fs stores derivative files on the local filesystem, one directory
// per collection slug under a fixed output root.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/pathguard"
)

// Backend is a filesystem DerivativeStore. Every path it touches is resolved
// through the path guard first.
type Backend struct {
	baseDir string
}

// Config holds configuration for the filesystem backend
type Config struct {
	BaseDir string // Output root; collection directories are created below it
}

// New creates a new filesystem backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return &Backend{baseDir: abs}, nil
}

// BaseDir returns the output root.
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// Dir resolves the directory of a collection. It does not create it.
func (b *Backend) Dir(ctx context.Context, collectionSlug string) (simplegallery.DerivativeDir, error) {
	path, err := pathguard.Resolve(b.baseDir, collectionSlug)
	if err != nil {
		return nil, err
	}
	return &dir{backend: b, slug: collectionSlug, path: path}, nil
}

type dir struct {
	backend *Backend
	slug    string
	path    string
}

func (d *dir) resolve(name string) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q is not a plain file name", simplegallery.ErrPathTraversal, name)
	}
	return pathguard.Resolve(d.backend.baseDir, d.slug, name)
}

func storageErr(op, key string, err error) error {
	return &simplegallery.StorageError{
		Op:  op,
		Key: key,
		Err: fmt.Errorf("%w: %w", simplegallery.ErrStorageFailure, err),
	}
}

// WriteFile writes data under name, replacing the file atomically.
func (d *dir) WriteFile(name string, data []byte) error {
	target, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return storageErr("mkdir", filepath.Dir(target), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return storageErr("create", target, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageErr("write", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageErr("close", target, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return storageErr("chmod", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return storageErr("rename", target, err)
	}
	return nil
}

// RemoveFile deletes name. A missing file yields an error matching
// io/fs.ErrNotExist.
func (d *dir) RemoveFile(name string) error {
	target, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		return storageErr("remove", target, err)
	}
	return nil
}

// Rename moves oldName to newName without ever replacing an existing file.
// An occupied target is reported as an identifier conflict.
func (d *dir) Rename(oldName, newName string) error {
	from, err := d.resolve(oldName)
	if err != nil {
		return err
	}
	to, err := d.resolve(newName)
	if err != nil {
		return err
	}

	err = os.Link(from, to)
	switch {
	case err == nil:
		if err := os.Remove(from); err != nil {
			return storageErr("rename", from, err)
		}
		return nil
	case errors.Is(err, iofs.ErrExist):
		return fmt.Errorf("%w: %s already exists", simplegallery.ErrIdentifierConflict, newName)
	}

	// Filesystems without hard links.
	if _, serr := os.Lstat(to); serr == nil {
		return fmt.Errorf("%w: %s already exists", simplegallery.ErrIdentifierConflict, newName)
	}
	if err := os.Rename(from, to); err != nil {
		return storageErr("rename", from, err)
	}
	return nil
}

// Prune removes the collection directory when it is empty.
func (d *dir) Prune() error {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return storageErr("readdir", d.path, err)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(d.path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return storageErr("rmdir", d.path, err)
	}
	return nil
}
