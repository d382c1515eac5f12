package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/middleware"
	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type catalogServiceStub struct{}

func (catalogServiceStub) Colleges() []models.College {
	return []models.College{{Code: "CBAS", Name: "College of Basic and Applied Sciences"}}
}

func (catalogServiceStub) Departments(college string) ([]models.Department, error) {
	if college != "CBAS" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
	}
	return []models.Department{{Name: "Physics"}}, nil
}

func (catalogServiceStub) Programmes(college, department string) ([]string, error) {
	return []string{"B.Sc. Physics"}, nil
}

func (catalogServiceStub) Levels() []string         { return []string{"100", "200"} }
func (catalogServiceStub) FileTypes() []string      { return []string{"PDF", "DOCX"} }
func (catalogServiceStub) Semesters() []string      { return []string{"First Semester"} }
func (catalogServiceStub) Roles() []models.UserRole { return []models.UserRole{models.RoleStudent} }

type statsServiceStub struct {
	hit       bool
	lastLevel string
	err       error
}

func (s *statsServiceStub) Portal(ctx context.Context) (*models.PortalStats, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return &models.PortalStats{TotalResources: 42}, s.hit, nil
}

func (s *statsServiceStub) DepartmentCounts(ctx context.Context, level string) ([]models.DepartmentCount, bool, error) {
	s.lastLevel = level
	return []models.DepartmentCount{{Department: "Physics", Files: 3}}, s.hit, nil
}

func TestCatalogHandlerStatsReportsCacheHit(t *testing.T) {
	stats := &statsServiceStub{hit: true}
	handler := NewCatalogHandler(catalogServiceStub{}, stats)

	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.GET("/stats", handler.Stats)
	router.GET("/catalog/department-counts", handler.DepartmentCounts)

	c, w := newGinContext(http.MethodGet, "/stats", nil)
	router.ServeHTTP(w, c.Request)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var portal models.PortalStats
	require.NoError(t, json.Unmarshal(env.Data, &portal))
	assert.Equal(t, 42, portal.TotalResources)

	stats.hit = false
	c, w = newGinContext(http.MethodGet, "/catalog/department-counts?level=%20300%20", nil)
	router.ServeHTTP(w, c.Request)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeEnvelope(t, w).Meta["cache_hit"])
	assert.Equal(t, "300", stats.lastLevel)
}

func TestCatalogHandlerStatsError(t *testing.T) {
	handler := NewCatalogHandler(catalogServiceStub{}, &statsServiceStub{err: appErrors.ErrInternal})

	c, w := newGinContext(http.MethodGet, "/stats", nil)
	handler.Stats(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCatalogHandlerHierarchy(t *testing.T) {
	handler := NewCatalogHandler(catalogServiceStub{}, &statsServiceStub{})

	c, w := newGinContext(http.MethodGet, "/catalog/colleges/XYZ/departments", nil)
	c.Params = gin.Params{{Key: "code", Value: "XYZ"}}
	handler.Departments(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodGet, "/catalog/programmes?college=CBAS", nil)
	handler.Programmes(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/catalog/programmes?college=CBAS&department=Physics", nil)
	handler.Programmes(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["B.Sc. Physics"]`, string(decodeEnvelope(t, w).Data))

	c, w = newGinContext(http.MethodGet, "/catalog/file-types", nil)
	handler.FileTypes(c)
	env := decodeEnvelope(t, w)
	assert.JSONEq(t, `["PDF","DOCX"]`, string(env.Data))
	assert.Contains(t, env.Meta, "semesters")
	assert.Contains(t, env.Meta, "roles")
}
