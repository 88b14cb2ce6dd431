package location

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Files resolves locations on the local filesystem.
type Files struct{}

// Open opens path for reading. Missing paths, directories and other
// non-regular files, and files the process cannot read all yield ErrNotFound.
func (f *Files) Open(_ context.Context, path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	return file, nil
}

// Create truncates or creates path.
func (f *Files) Create(_ context.Context, path string) (io.WriteCloser, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, nil
}
