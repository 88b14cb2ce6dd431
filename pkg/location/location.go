// Package location resolves import/export paths to readers and writers.
// Plain paths and file:// URLs map to the local filesystem; s3://bucket/key
// maps to an S3-compatible object store and sftp://host/path to an SSH
// server when those are configured.
package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Open when the source does not exist, is not a
// regular file or object, or cannot be read.
var ErrNotFound = errors.New("location not found")

// Resolver opens locations for reading and writing.
type Resolver interface {
	// Open returns a reader for an existing location.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Create returns a writer that replaces the location's content.
	// Content is only guaranteed to be stored once Close returns nil.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// Router dispatches on the path scheme.
type Router struct {
	files *Files
	s3    *S3
	sftp  *SFTP
}

// Option configures a Router.
type Option func(*Router)

// WithS3 enables s3:// locations.
func WithS3(s *S3) Option {
	return func(r *Router) {
		r.s3 = s
	}
}

// WithSFTP enables sftp:// locations.
func WithSFTP(s *SFTP) Option {
	return func(r *Router) {
		r.sftp = s
	}
}

// NewRouter creates a router that always handles local files.
func NewRouter(opts ...Option) *Router {
	r := &Router{files: &Files{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is a local-filesystem-only router.
var Default Resolver = NewRouter()

// Open implements Resolver.
func (r *Router) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	backend, target, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, target)
}

// Create implements Resolver.
func (r *Router) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	backend, target, err := r.route(path)
	if err != nil {
		return nil, err
	}
	return backend.Create(ctx, target)
}

func (r *Router) route(path string) (Resolver, string, error) {
	if !strings.Contains(path, "://") {
		return r.files, path, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse location %q: %w", path, err)
	}

	switch u.Scheme {
	case "file":
		return r.files, u.Path, nil
	case "s3":
		if r.s3 == nil {
			return nil, "", fmt.Errorf("s3 locations are not configured: %s", path)
		}
		return r.s3, path, nil
	case "sftp":
		if r.sftp == nil {
			return nil, "", fmt.Errorf("sftp locations are not configured: %s", path)
		}
		return r.sftp, path, nil
	default:
		return nil, "", fmt.Errorf("unsupported location scheme %q", u.Scheme)
	}
}
