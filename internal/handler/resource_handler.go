package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/response"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	searchSessionHeader = "X-Search-Session"
)

type resourceService interface {
	Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error)
	ExamPrep(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error)
	Detail(ctx context.Context, actor *models.Actor, id string) (*models.ResourceDetail, error)
	Upload(ctx context.Context, actor *models.Actor, req models.UploadResourceRequest, file models.UploadFile) (*models.Resource, error)
	Delete(ctx context.Context, actor *models.Actor, id string) error
	UpdateStatus(ctx context.Context, actor *models.Actor, id string, req models.UpdateResourceStatusRequest) (*models.Resource, error)
	MyUploads(ctx context.Context, actor *models.Actor) ([]models.Resource, error)
	UploaderStats(ctx context.Context, actor *models.Actor) (*models.UploaderStats, error)
}

type downloadRecorder interface {
	Record(ctx context.Context, resourceID, actionKey string) (*models.DownloadReceipt, error)
}

type downloadApplier interface {
	ApplyDownload(actor *models.Actor, sessionID, resourceID string) bool
}

// ResourceHandler exposes course material endpoints.
type ResourceHandler struct {
	resources resourceService
	downloads downloadRecorder
	sessions  downloadApplier
}

// NewResourceHandler constructs the handler. sessions may be nil.
func NewResourceHandler(resources resourceService, downloads downloadRecorder, sessions downloadApplier) *ResourceHandler {
	return &ResourceHandler{resources: resources, downloads: downloads, sessions: sessions}
}

// Search godoc
// @Summary Browse approved resources
// @Tags Resources
// @Produce json
// @Param college query string false "College code or name"
// @Param department query string false "Department"
// @Param programme query string false "Programme"
// @Param level query string false "Level"
// @Param file_type query string false "File type"
// @Param uploader_role query string false "Uploader role"
// @Param q query string false "Title or course code"
// @Param course_code query string false "Course code"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /resources [get]
func (h *ResourceHandler) Search(c *gin.Context) {
	h.search(c, h.resources.Search)
}

// ExamPrep godoc
// @Summary Browse exam preparation material
// @Tags Resources
// @Produce json
// @Param department query string false "Department"
// @Param level query string false "Level"
// @Param q query string false "Title or course code"
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /resources/exam-prep [get]
func (h *ResourceHandler) ExamPrep(c *gin.Context) {
	h.search(c, h.resources.ExamPrep)
}

func (h *ResourceHandler) search(c *gin.Context, run func(context.Context, models.ResourceFilter) ([]models.Resource, *models.Pagination, error)) {
	var filter models.ResourceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search parameters"))
		return
	}
	items, pagination, err := run(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Resource detail with related materials
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	detail, err := h.resources.Detail(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Upload godoc
// @Summary Upload a course material
// @Description Lecturers, class reps and admins upload a file with its classification. Uploads start pending unless made by an admin.
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Material"
// @Param title formData string true "Title"
// @Param course_code formData string true "Course code"
// @Param college formData string true "College"
// @Param department formData string true "Department"
// @Param level formData string true "Level"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /resources [post]
func (h *ResourceHandler) Upload(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req models.UploadResourceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload payload"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read file"))
		return
	}
	defer file.Close()

	res, err := h.resources.Upload(c.Request.Context(), actor, req, models.UploadFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Delete godoc
// @Summary Delete a resource
// @Tags Resources
// @Param id path string true "Resource ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.resources.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Moderate a resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param payload body models.UpdateResourceStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Router /resources/{id}/status [patch]
func (h *ResourceHandler) UpdateStatus(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req models.UpdateResourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	res, err := h.resources.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// RecordDownload godoc
// @Summary Record a file open
// @Description Returns the file URL and the optimistic count. Replaying an Idempotency-Key does not count twice.
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Param Idempotency-Key header string false "Identifies one user action"
// @Param X-Search-Session header string false "Live search session to update"
// @Success 200 {object} response.Envelope
// @Router /resources/{id}/downloads [post]
func (h *ResourceHandler) RecordDownload(c *gin.Context) {
	id := c.Param("id")
	receipt, err := h.downloads.Record(c.Request.Context(), id, strings.TrimSpace(c.GetHeader(idempotencyHeader)))
	if err != nil {
		response.Error(c, err)
		return
	}
	if sessionID := c.GetHeader(searchSessionHeader); sessionID != "" && !receipt.Duplicate && h.sessions != nil {
		if actor := actorFromContext(c); actor != nil {
			h.sessions.ApplyDownload(actor, sessionID, id)
		}
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// MyUploads godoc
// @Summary Resources uploaded by the caller
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/uploads [get]
func (h *ResourceHandler) MyUploads(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	items, err := h.resources.MyUploads(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UploaderStats godoc
// @Summary Upload and download totals for the caller
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/uploads/stats [get]
func (h *ResourceHandler) UploaderStats(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	stats, err := h.resources.UploaderStats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
