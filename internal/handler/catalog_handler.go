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

type catalogService interface {
	Colleges() []models.College
	Departments(college string) ([]models.Department, error)
	Programmes(college, department string) ([]string, error)
	Levels() []string
	FileTypes() []string
	Semesters() []string
	Roles() []models.UserRole
}

type statsService interface {
	Portal(ctx context.Context) (*models.PortalStats, bool, error)
	DepartmentCounts(ctx context.Context, level string) ([]models.DepartmentCount, bool, error)
}

// CatalogHandler serves the college hierarchy and landing statistics.
type CatalogHandler struct {
	catalog catalogService
	stats   statsService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogService, stats statsService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, stats: stats}
}

// Colleges godoc
// @Summary Colleges with departments and programmes
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/colleges [get]
func (h *CatalogHandler) Colleges(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Colleges(), nil)
}

// Departments godoc
// @Summary Departments of a college
// @Tags Catalog
// @Produce json
// @Param code path string true "College code or name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/colleges/{code}/departments [get]
func (h *CatalogHandler) Departments(c *gin.Context) {
	departments, err := h.catalog.Departments(c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Programmes godoc
// @Summary Programmes of a department
// @Tags Catalog
// @Produce json
// @Param college query string true "College code or name"
// @Param department query string true "Department name or code"
// @Success 200 {object} response.Envelope
// @Router /catalog/programmes [get]
func (h *CatalogHandler) Programmes(c *gin.Context) {
	college := strings.TrimSpace(c.Query("college"))
	department := strings.TrimSpace(c.Query("department"))
	if college == "" || department == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "college and department are required"))
		return
	}
	programmes, err := h.catalog.Programmes(college, department)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programmes, nil)
}

// Levels godoc
// @Summary Study levels
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/levels [get]
func (h *CatalogHandler) Levels(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Levels(), nil)
}

// FileTypes godoc
// @Summary Accepted upload formats, semesters and uploader roles
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/file-types [get]
func (h *CatalogHandler) FileTypes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.FileTypes(), nil, map[string]interface{}{
		"semesters": h.catalog.Semesters(),
		"roles":     h.catalog.Roles(),
	})
}

// DepartmentCounts godoc
// @Summary Approved files per department
// @Tags Catalog
// @Produce json
// @Param level query string false "Level, or all"
// @Success 200 {object} response.Envelope
// @Router /catalog/department-counts [get]
func (h *CatalogHandler) DepartmentCounts(c *gin.Context) {
	counts, hit, err := h.stats.DepartmentCounts(c.Request.Context(), strings.TrimSpace(c.Query("level")))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, counts, nil, hit)
}

// Stats godoc
// @Summary Landing page totals and recent uploads
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *CatalogHandler) Stats(c *gin.Context) {
	stats, hit, err := h.stats.Portal(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, stats, nil, hit)
}
