package handler

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/pkg/storage"
)

type objectReaderStub map[string]string

func (s objectReaderStub) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if strings.Contains(key, "..") {
		return nil, storage.ErrInvalidKey
	}
	body, ok := s[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func serveFile(handler *FileHandler, bucket, key string) *responseRecorderResult {
	c, w := newGinContext(http.MethodGet, "/files/"+bucket+key, nil)
	c.Params = gin.Params{{Key: "bucket", Value: bucket}, {Key: "key", Value: key}}
	handler.Serve(c)
	return &responseRecorderResult{code: w.Code, body: w.Body.String(), contentType: w.Header().Get("Content-Type")}
}

type responseRecorderResult struct {
	code        int
	body        string
	contentType string
}

func TestFileHandlerServe(t *testing.T) {
	handler := NewFileHandler(objectReaderStub{"u1/notes.pdf": "%PDF-1.4"}, "materials")

	res := serveFile(handler, "materials", "/u1/notes.pdf")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "%PDF-1.4", res.body)
	assert.Equal(t, "application/pdf", res.contentType)

	assert.Equal(t, http.StatusNotFound, serveFile(handler, "other", "/u1/notes.pdf").code)
	assert.Equal(t, http.StatusNotFound, serveFile(handler, "materials", "/u1/missing.pdf").code)
	assert.Equal(t, http.StatusNotFound, serveFile(handler, "materials", "/../etc/passwd").code)
	assert.Equal(t, http.StatusNotFound, serveFile(handler, "materials", "/").code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newGinContext(http.MethodGet, "/readyz", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","checks":{"postgres":"ok"}}`, w.Body.String())

	handler = NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newGinContext(http.MethodGet, "/readyz", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
