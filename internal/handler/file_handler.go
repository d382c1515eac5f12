package handler

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/response"
	"github.com/noah-isme/studybase-api/pkg/storage"
)

type objectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// FileHandler streams objects kept by the local storage driver.
type FileHandler struct {
	objects objectReader
	bucket  string
}

// NewFileHandler constructs the handler for one bucket.
func NewFileHandler(objects objectReader, bucket string) *FileHandler {
	return &FileHandler{objects: objects, bucket: bucket}
}

// Serve godoc
// @Summary Download an uploaded file
// @Tags Resources
// @Produce octet-stream
// @Param bucket path string true "Bucket"
// @Param key path string true "Object key"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/{bucket}/{key} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if c.Param("bucket") != h.bucket || key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	body, err := h.objects.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, storage.ErrInvalidKey) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Content-Disposition": `inline; filename="` + path.Base(key) + `"`,
	})
}
