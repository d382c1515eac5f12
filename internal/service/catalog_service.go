package service

import (
	"strings"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

// CatalogService serves the static reference data used by upload forms and facets.
type CatalogService struct{}

// NewCatalogService constructs a CatalogService.
func NewCatalogService() *CatalogService {
	return &CatalogService{}
}

// Colleges returns every college with its departments.
func (s *CatalogService) Colleges() []models.College {
	return models.Colleges
}

// Departments returns the departments of a college by code or name.
func (s *CatalogService) Departments(college string) ([]models.Department, error) {
	c, ok := models.FindCollege(strings.TrimSpace(college))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
	}
	return c.Departments, nil
}

// Programmes returns the programmes of a department.
func (s *CatalogService) Programmes(college, department string) ([]string, error) {
	programmes := models.ProgrammesFor(strings.TrimSpace(college), strings.TrimSpace(department))
	if programmes == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
	}
	return programmes, nil
}

// Levels returns the study levels.
func (s *CatalogService) Levels() []string {
	return models.Levels
}

// FileTypes returns accepted upload formats.
func (s *CatalogService) FileTypes() []string {
	return models.FileTypes
}

// Semesters returns the optional semester tags.
func (s *CatalogService) Semesters() []string {
	return models.Semesters
}

// Roles returns uploader roles usable as a search facet.
func (s *CatalogService) Roles() []models.UserRole {
	return models.Roles
}
