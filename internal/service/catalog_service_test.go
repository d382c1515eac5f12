package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

func TestCatalogServiceDepartments(t *testing.T) {
	svc := NewCatalogService()

	byCode, err := svc.Departments("cahs")
	require.NoError(t, err)
	byName, err := svc.Departments("College of Allied Health Sciences")
	require.NoError(t, err)
	assert.Equal(t, byCode, byName)
	assert.Len(t, byCode, 5)

	_, err = svc.Departments("CENG")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceProgrammes(t *testing.T) {
	svc := NewCatalogService()

	programmes, err := svc.Programmes("CBAS", "Computer Science & Mathematics")
	require.NoError(t, err)
	assert.Contains(t, programmes, "B.Sc. Cyber Security")

	programmes, err = svc.Programmes("CBAS", "CompMath")
	require.NoError(t, err)
	assert.Len(t, programmes, 4)

	_, err = svc.Programmes("CHMS", "Physics")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceLists(t *testing.T) {
	svc := NewCatalogService()
	assert.Len(t, svc.Colleges(), 3)
	assert.Equal(t, []string{"100", "200", "300", "400", "500"}, svc.Levels())
	assert.Contains(t, svc.FileTypes(), "PPTX")
	assert.Len(t, svc.Semesters(), 2)
	assert.NotEmpty(t, svc.Roles())
}
