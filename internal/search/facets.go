// Package search holds the faceted query state machine behind live resource search.
package search

import (
	"strconv"
	"strings"

	"github.com/noah-isme/studybase-api/internal/models"
)

// ActionKind names a facet transition.
type ActionKind string

const (
	ActionSetCollege      ActionKind = "set_college"
	ActionSetDepartment   ActionKind = "set_department"
	ActionSetProgramme    ActionKind = "set_programme"
	ActionSetLevel        ActionKind = "set_level"
	ActionSetFileType     ActionKind = "set_file_type"
	ActionSetUploaderRole ActionKind = "set_uploader_role"
	ActionSetQuery        ActionKind = "set_query"
	ActionSetCourseCode   ActionKind = "set_course_code"
	ActionSetPage         ActionKind = "set_page"
	ActionClear           ActionKind = "clear"
)

// Action is one user change to the facet selection.
type Action struct {
	Kind  ActionKind `json:"kind" validate:"required,oneof=set_college set_department set_programme set_level set_file_type set_uploader_role set_query set_course_code set_page clear"`
	Value string     `json:"value"`
}

// FacetState is the current facet selection. Enumerated facets hold "all" when unconstrained.
type FacetState struct {
	College      string `json:"college"`
	Department   string `json:"department"`
	Programme    string `json:"programme"`
	Level        string `json:"level"`
	FileType     string `json:"file_type"`
	UploaderRole string `json:"uploader_role"`
	Query        string `json:"query"`
	CourseCode   string `json:"course_code"`
	Page         int    `json:"page"`
}

// DefaultFacets is the unconstrained first page.
func DefaultFacets() FacetState {
	return FacetState{
		College:      models.FacetAll,
		Department:   models.FacetAll,
		Programme:    models.FacetAll,
		Level:        models.FacetAll,
		FileType:     models.FacetAll,
		UploaderRole: models.FacetAll,
		Page:         1,
	}
}

// Reduce applies action to state. It is pure: the result depends only on its inputs.
// Changing college clears department and programme, changing department clears programme,
// and every facet change returns to page 1.
func Reduce(state FacetState, action Action) FacetState {
	next := state
	value := normalise(action.Value)

	switch action.Kind {
	case ActionSetCollege:
		next.College = value
		next.Department = models.FacetAll
		next.Programme = models.FacetAll
	case ActionSetDepartment:
		if state.College == models.FacetAll {
			return state
		}
		next.Department = value
		next.Programme = models.FacetAll
	case ActionSetProgramme:
		if state.Department == models.FacetAll {
			return state
		}
		next.Programme = value
	case ActionSetLevel:
		next.Level = value
	case ActionSetFileType:
		next.FileType = value
	case ActionSetUploaderRole:
		next.UploaderRole = value
	case ActionSetQuery:
		next.Query = action.Value
	case ActionSetCourseCode:
		next.CourseCode = strings.TrimSpace(action.Value)
	case ActionSetPage:
		page, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil || page < 1 {
			page = 1
		}
		next.Page = page
		return next
	case ActionClear:
		return DefaultFacets()
	default:
		return state
	}

	if next.sameFacets(state) {
		return state
	}
	next.Page = 1
	return next
}

func (s FacetState) sameFacets(o FacetState) bool {
	s.Page, o.Page = 0, 0
	return s == o
}

// Filter converts the selection into a repository filter.
func (s FacetState) Filter(pageSize int) models.ResourceFilter {
	return models.ResourceFilter{
		College:      models.CollegeName(s.College),
		Department:   s.Department,
		Programme:    s.Programme,
		Level:        s.Level,
		FileType:     s.FileType,
		UploaderRole: s.UploaderRole,
		Query:        strings.TrimSpace(s.Query),
		CourseCode:   s.CourseCode,
		Page:         s.Page,
		PageSize:     pageSize,
	}
}

func normalise(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, models.FacetAll) {
		return models.FacetAll
	}
	return v
}
