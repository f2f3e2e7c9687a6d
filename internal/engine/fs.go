package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/datallboy/dltool/internal/domain"
)

// FileSystem is the local storage capability used by transfer tasks.
type FileSystem interface {
	// Size returns the size of the file at path, or 0 when it does not exist.
	Size(path string) (int64, error)
	// Open opens path for writing, appending to or truncating an existing file.
	Open(path string, appendMode bool) (io.WriteCloser, error)
	// Remove deletes path. A missing file is not an error.
	Remove(path string) error
	DirExists(path string) bool
}

// OSFileSystem is the FileSystem of the host. Every failure it returns wraps
// domain.ErrOutputUnusable: a local disk problem is never fixed by retrying.
type OSFileSystem struct{}

func (OSFileSystem) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, unusable(err)
	}
	if !info.Mode().IsRegular() {
		return 0, unusable(fmt.Errorf("%s is not a regular file", path))
	}
	return info.Size(), nil
}

func (OSFileSystem) Open(path string, appendMode bool) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, unusable(err)
	}
	return outputFile{f}, nil
}

func (OSFileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unusable(err)
	}
	return nil
}

func (OSFileSystem) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type outputFile struct {
	f *os.File
}

func (o outputFile) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	if err != nil {
		err = unusable(err)
	}
	return n, err
}

func (o outputFile) Close() error {
	if err := o.f.Close(); err != nil {
		return unusable(err)
	}
	return nil
}

func unusable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrOutputUnusable, err)
}
