// Package filestore fetches spreadsheet bytes by URI: local paths, gs://
// objects, drive:// files and mem:// uploads held by the process.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the referenced file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrUnsupportedScheme is returned for URIs no source is registered for.
var ErrUnsupportedScheme = errors.New("unsupported URI scheme")

// File is a fetched spreadsheet.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Source fetches files for one URI scheme. ref is the URI without the
// "scheme://" prefix.
type Source interface {
	Fetch(ctx context.Context, ref string) (File, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ref string) (File, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, ref string) (File, error) {
	return f(ctx, ref)
}

// Fetcher dispatches URIs to sources by scheme. URIs without a scheme are
// local paths.
type Fetcher struct {
	sources map[string]Source
}

// Option registers a source.
type Option func(*Fetcher)

// WithSource registers src for scheme.
func WithSource(scheme string, src Source) Option {
	return func(f *Fetcher) {
		f.sources[strings.ToLower(scheme)] = src
	}
}

// NewFetcher returns a fetcher that reads local files plus the given sources.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{sources: map[string]Source{
		"file": SourceFunc(fetchLocal),
	}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch reads the file behind uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (File, error) {
	scheme, ref := SplitURI(uri)
	src, ok := f.sources[scheme]
	if !ok {
		return File{}, fmt.Errorf("Fetch: %w: %q", ErrUnsupportedScheme, scheme)
	}
	file, err := src.Fetch(ctx, ref)
	if err != nil {
		return File{}, fmt.Errorf("Fetch: %s: %w", uri, err)
	}
	return file, nil
}

// SplitURI returns the lower-cased scheme and the remainder. Plain paths
// report scheme "file".
func SplitURI(uri string) (scheme, ref string) {
	if i := strings.Index(uri, "://"); i > 0 {
		return strings.ToLower(uri[:i]), uri[i+3:]
	}
	return "file", uri
}

func fetchLocal(_ context.Context, path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return File{}, fmt.Errorf("read file %q: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}
