package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Object describes a stored binary.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ObjectStore is the binary store used for uploaded course materials.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// LocalObjectStore adapts LocalStorage to ObjectStore, serving objects from a public base URL.
type LocalObjectStore struct {
	files   *LocalStorage
	bucket  string
	baseURL string
}

// NewLocalObjectStore builds a disk-backed object store. baseURL is the public prefix the
// files route is mounted on, e.g. http://host/api/v1/files.
func NewLocalObjectStore(files *LocalStorage, bucket, baseURL string) *LocalObjectStore {
	return &LocalObjectStore{files: files, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put streams body to disk under bucket/key.
func (s *LocalObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	written, err := s.files.SaveStream(s.objectPath(key), body)
	if err != nil {
		return nil, err
	}
	if size > 0 && written != size {
		_ = s.files.Delete(s.objectPath(key))
		return nil, fmt.Errorf("short write for %s: wrote %d of %d bytes", key, written, size)
	}
	return &Object{Key: key, URL: s.URL(key), Size: written, ContentType: contentType}, nil
}

// Get opens a stored object.
func (s *LocalObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.files.Open(s.objectPath(key))
}

// Delete removes a stored object; missing objects are not an error.
func (s *LocalObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.files.Delete(s.objectPath(key))
}

// URL returns the public download URL for key.
func (s *LocalObjectStore) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, url.PathEscape(s.bucket), escapeKey(key))
}

func (s *LocalObjectStore) objectPath(key string) string {
	return path.Join(s.bucket, key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
