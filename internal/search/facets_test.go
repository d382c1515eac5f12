package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/studybase-api/internal/models"
)

const cbas = "College of Basic and Applied Sciences"

func selected() FacetState {
	s := DefaultFacets()
	s = Reduce(s, Action{Kind: ActionSetCollege, Value: cbas})
	s = Reduce(s, Action{Kind: ActionSetDepartment, Value: "Computer Science & Mathematics"})
	s = Reduce(s, Action{Kind: ActionSetProgramme, Value: "B.Sc. Computer Science"})
	s = Reduce(s, Action{Kind: ActionSetPage, Value: "4"})
	return s
}

func TestCollegeChangeClearsDownstream(t *testing.T) {
	s := Reduce(selected(), Action{Kind: ActionSetCollege, Value: "College of Allied Health Sciences"})
	assert.Equal(t, "College of Allied Health Sciences", s.College)
	assert.Equal(t, models.FacetAll, s.Department)
	assert.Equal(t, models.FacetAll, s.Programme)
	assert.Equal(t, 1, s.Page)
}

func TestDepartmentChangeClearsProgramme(t *testing.T) {
	s := Reduce(selected(), Action{Kind: ActionSetDepartment, Value: "Physics"})
	assert.Equal(t, cbas, s.College)
	assert.Equal(t, "Physics", s.Department)
	assert.Equal(t, models.FacetAll, s.Programme)
	assert.Equal(t, 1, s.Page)
}

func TestDependentFacetsIgnoredWithoutParent(t *testing.T) {
	s := Reduce(DefaultFacets(), Action{Kind: ActionSetDepartment, Value: "Physics"})
	assert.Equal(t, DefaultFacets(), s)

	s = Reduce(s, Action{Kind: ActionSetCollege, Value: cbas})
	s = Reduce(s, Action{Kind: ActionSetProgramme, Value: "B.Sc. Physics"})
	assert.Equal(t, models.FacetAll, s.Programme)
}

func TestEveryFacetChangeResetsPage(t *testing.T) {
	kinds := []Action{
		{Kind: ActionSetCollege, Value: "College of Humanities, Management & Social Sciences"},
		{Kind: ActionSetDepartment, Value: "Physics"},
		{Kind: ActionSetProgramme, Value: "B.Sc. Computer Science & more"},
		{Kind: ActionSetLevel, Value: "300"},
		{Kind: ActionSetFileType, Value: "PDF"},
		{Kind: ActionSetUploaderRole, Value: "Lecturer"},
		{Kind: ActionSetQuery, Value: "algorithms"},
		{Kind: ActionSetCourseCode, Value: "CSC"},
		{Kind: ActionClear},
	}
	for _, action := range kinds {
		s := Reduce(selected(), action)
		assert.Equal(t, 1, s.Page, string(action.Kind))
	}
}

func TestSameValueKeepsPage(t *testing.T) {
	s := Reduce(selected(), Action{Kind: ActionSetCollege, Value: cbas})
	assert.Equal(t, selected(), s)
}

func TestSetPageOnlyChangesPage(t *testing.T) {
	before := selected()
	s := Reduce(before, Action{Kind: ActionSetPage, Value: "7"})
	assert.Equal(t, 7, s.Page)
	s.Page = before.Page
	assert.Equal(t, before, s)

	assert.Equal(t, 1, Reduce(before, Action{Kind: ActionSetPage, Value: "-3"}).Page)
	assert.Equal(t, 1, Reduce(before, Action{Kind: ActionSetPage, Value: "abc"}).Page)
}

func TestAllValueNormalised(t *testing.T) {
	s := Reduce(selected(), Action{Kind: ActionSetLevel, Value: " ALL "})
	assert.Equal(t, models.FacetAll, s.Level)
	s = Reduce(s, Action{Kind: ActionSetFileType, Value: ""})
	assert.Equal(t, models.FacetAll, s.FileType)
}

func TestUnknownActionIsNoop(t *testing.T) {
	assert.Equal(t, selected(), Reduce(selected(), Action{Kind: "toggle_theme"}))
}

func TestFilterCarriesSelection(t *testing.T) {
	s := Reduce(selected(), Action{Kind: ActionSetQuery, Value: "  graphs "})
	f := s.Filter(12)
	assert.Equal(t, cbas, f.College)
	assert.Equal(t, "Computer Science & Mathematics", f.Department)
	assert.Equal(t, models.FacetAll, f.Programme)
	assert.Equal(t, "graphs", f.Query)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 12, f.PageSize)
}

func TestFilterResolvesCollegeCode(t *testing.T) {
	s := Reduce(DefaultFacets(), Action{Kind: ActionSetCollege, Value: "CBAS"})
	assert.Equal(t, "CBAS", s.College)
	assert.Equal(t, cbas, s.Filter(12).College)
	assert.Equal(t, models.FacetAll, DefaultFacets().Filter(12).College)
}
