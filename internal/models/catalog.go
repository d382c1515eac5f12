package models

import "strings"

// Department is an academic department and the programmes it offers.
type Department struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Programmes []string `json:"programmes"`
}

// College groups departments.
type College struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Departments []Department `json:"departments"`
}

// Semester values accepted on uploads.
const (
	SemesterFirst  = "First Semester"
	SemesterSecond = "Second Semester"
)

// Colleges is the fixed college hierarchy resources are classified under.
var Colleges = []College{
	{
		Code: "CBAS",
		Name: "College of Basic and Applied Sciences",
		Departments: []Department{
			{Code: "BioSci", Name: "Biological Sciences", Programmes: []string{"B.Sc. Biology", "B.Sc. Microbiology", "B.Sc. Biotechnology"}},
			{Code: "Biochem", Name: "Biochemistry", Programmes: []string{"B.Sc. Biochemistry"}},
			{Code: "ChemSci", Name: "Chemical Sciences", Programmes: []string{"B.Sc. Chemistry", "B.Sc. Industrial Chemistry"}},
			{Code: "CompMath", Name: "Computer Science & Mathematics", Programmes: []string{"B.Sc. Computer Science", "B.Sc. Mathematics", "B.Sc. Software Engineering", "B.Sc. Cyber Security"}},
			{Code: "FoodSci", Name: "Food Science & Technology", Programmes: []string{"B.Sc. Food Science and Technology"}},
			{Code: "Geosci", Name: "Geosciences", Programmes: []string{"B.Sc. Geology", "B.Sc. Applied Geophysics"}},
			{Code: "Physics", Name: "Physics", Programmes: []string{"B.Sc. Physics", "B.Sc. Physics with Electronics"}},
		},
	},
	{
		Code: "CHMS",
		Name: "College of Humanities, Management & Social Sciences",
		Departments: []Department{
			{Code: "AcctFin", Name: "Accounting & Finance", Programmes: []string{"B.Sc. Accounting", "B.Sc. Finance", "B.Sc. Securities and Investment"}},
			{Code: "BusAdmin", Name: "Business Administration", Programmes: []string{"B.Sc. Business Administration", "B.Sc. Industrial Relations & Personnel Management", "B.Sc. Public Administration"}},
			{Code: "Econ", Name: "Economics", Programmes: []string{"B.Sc. Economics"}},
			{Code: "FineArts", Name: "Fine & Applied Arts", Programmes: []string{"B.A. Fine and Applied Arts"}},
			{Code: "Lang", Name: "Languages", Programmes: []string{"B.A. English"}},
			{Code: "MassComm", Name: "Mass Communication", Programmes: []string{"B.Sc. Mass Communication"}},
			{Code: "Music", Name: "Music", Programmes: []string{"B.A. Music"}},
			{Code: "PhilRel", Name: "Philosophy & Religion", Programmes: []string{"B.A. Religious Studies"}},
		},
	},
	{
		Code: "CAHS",
		Name: "College of Allied Health Sciences",
		Departments: []Department{
			{Code: "Nursing", Name: "Nursing Science", Programmes: []string{"B.N.Sc. Nursing Science"}},
			{Code: "MedLab", Name: "Medical Laboratory Science", Programmes: []string{"B.MLS Medical Laboratory Science"}},
			{Code: "PubHealth", Name: "Public Health", Programmes: []string{"B.Sc. Public Health"}},
			{Code: "NutDiet", Name: "Nutrition and Dietetics", Programmes: []string{"B.Sc. Nutrition and Dietetics"}},
			{Code: "BiomedTech", Name: "Biomedical Technology", Programmes: []string{"B.Sc. Biomedical Technology"}},
		},
	},
}

// Levels are the study levels a resource can target.
var Levels = []string{"100", "200", "300", "400", "500"}

// FileTypes are the accepted upload formats.
var FileTypes = []string{"PDF", "DOCX", "PPTX", "XLSX", "ZIP", "TXT", "MD", "CSV", "JPG", "PNG"}

// Semesters are the optional semester tags.
var Semesters = []string{SemesterFirst, SemesterSecond}

// FindCollege looks a college up by code or name.
func FindCollege(key string) (*College, bool) {
	for i := range Colleges {
		c := &Colleges[i]
		if strings.EqualFold(c.Code, key) || c.Name == key {
			return c, true
		}
	}
	return nil, false
}

// CollegeName resolves a college code to the stored name. Unknown keys are returned unchanged.
func CollegeName(key string) string {
	if c, ok := FindCollege(strings.TrimSpace(key)); ok {
		return c.Name
	}
	return key
}

// DepartmentsFor returns the department names of a college, nil if unknown.
func DepartmentsFor(college string) []string {
	c, ok := FindCollege(college)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(c.Departments))
	for _, d := range c.Departments {
		names = append(names, d.Name)
	}
	return names
}

// ProgrammesFor returns the programmes of a department within a college, nil if unknown.
func ProgrammesFor(college, department string) []string {
	c, ok := FindCollege(college)
	if !ok {
		return nil
	}
	for _, d := range c.Departments {
		if d.Name == department || strings.EqualFold(d.Code, department) {
			return d.Programmes
		}
	}
	return nil
}

// AllDepartments returns every department name across colleges.
func AllDepartments() []string {
	var out []string
	for _, c := range Colleges {
		for _, d := range c.Departments {
			out = append(out, d.Name)
		}
	}
	return out
}

// ValidLevel reports whether level is one of Levels.
func ValidLevel(level string) bool {
	return contains(Levels, level)
}

// ValidFileType reports whether t (any case) is one of FileTypes.
func ValidFileType(t string) bool {
	return contains(FileTypes, strings.ToUpper(t))
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
