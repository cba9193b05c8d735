package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/linkforge/apiclient/hashing"
)

const (
	fileSuffix = ".kv"
	dirPerm    = 0o700
	filePerm   = 0o600
)

// File stores each key in its own file under a directory. File names are
// XXH3 digests of the keys, so any string is a valid key. Writes go through
// a temporary file and a rename, so a reader never sees a partial value.
type File struct {
	dir string
}

var _ Store = (*File)(nil)

// NewFile returns a store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("kvstore: creating %s: %w", dir, err)
	}

	return &File{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) (string, error) {
	name, err := hashing.Xxh3(hashing.HashableString(key))
	if err != nil {
		return "", fmt.Errorf("kvstore: hashing key: %w", err)
	}

	return filepath.Join(f.dir, name+fileSuffix), nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	value, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("kvstore: reading %q: %w", key, err)
	}

	return value, nil
}

func (f *File) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(f.dir, ".set-*")
	if err != nil {
		return fmt.Errorf("kvstore: creating temp file: %w", err)
	}

	tempPath := tempFile.Name()

	success := false

	defer func() {
		_ = tempFile.Close()

		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(value); err != nil {
		return fmt.Errorf("kvstore: writing %q: %w", key, err)
	}

	if err := tempFile.Chmod(filePerm); err != nil {
		return fmt.Errorf("kvstore: writing %q: %w", key, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("kvstore: writing %q: %w", key, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("kvstore: writing %q: %w", key, err)
	}

	success = true

	return nil
}

func (f *File) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("kvstore: removing %q: %w", key, err)
	}

	return nil
}
