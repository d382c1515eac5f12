package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/repository"
)

type seedUser struct {
	email      string
	fullName   string
	role       models.UserRole
	department string
}

var demoUsers = []seedUser{
	{email: "admin@studybase.local", fullName: "Portal Admin", role: models.RoleAdmin},
	{email: "lecturer@studybase.local", fullName: "Dr. Funmi Adeyemi", role: models.RoleLecturer, department: "Computer Science & Mathematics"},
	{email: "classrep@studybase.local", fullName: "Tobi Ogunleye", role: models.RoleClassRep, department: "Physics"},
	{email: "student@studybase.local", fullName: "Ada Eze", role: models.RoleStudent, department: "Biochemistry"},
}

type seedResource struct {
	title      string
	courseCode string
	department string
	programme  string
	level      string
	fileType   string
	tags       []string
	uploader   string
	downloads  int
}

var demoResources = []seedResource{
	{"Introduction to Programming Lecture Notes", "CSC 101", "Computer Science & Mathematics", "B.Sc. Computer Science", "100", "PDF", []string{"notes"}, "lecturer@studybase.local", 42},
	{"Data Structures Past Questions 2023", "CSC 201", "Computer Science & Mathematics", "B.Sc. Computer Science, B.Sc. Software Engineering", "200", "PDF", []string{"past questions", "exam"}, "lecturer@studybase.local", 118},
	{"Linear Algebra Tutorial Sheet", "MTH 203", "Computer Science & Mathematics", "B.Sc. Mathematics", "200", "DOCX", []string{"tutorial"}, "lecturer@studybase.local", 17},
	{"Electromagnetism Slides", "PHY 205", "Physics", "B.Sc. Physics", "200", "PPTX", []string{"slides"}, "classrep@studybase.local", 9},
	{"Quantum Mechanics Exam Revision", "PHY 401", "Physics", "B.Sc. Physics, B.Sc. Physics with Electronics", "400", "PDF", []string{"exam", "revision"}, "classrep@studybase.local", 63},
}

func newSeedCmd(e *env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo accounts and approved resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users := repository.NewUserRepository(e.db)
			resources := repository.NewResourceRepository(e.db)

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			byEmail := make(map[string]*models.User, len(demoUsers))
			for _, u := range demoUsers {
				user := &models.User{
					Email:        u.email,
					PasswordHash: string(hash),
					FullName:     u.fullName,
					Role:         u.role,
					Department:   u.department,
					Active:       true,
				}
				if err := users.Create(ctx, user); err != nil {
					if !errors.Is(err, repository.ErrDuplicateEmail) {
						return err
					}
					existing, findErr := users.FindByEmail(ctx, u.email)
					if findErr != nil {
						return fmt.Errorf("load %s: %w", u.email, findErr)
					}
					user = existing
					e.logger.Info("user exists, skipping", zap.String("email", u.email))
				}
				byEmail[u.email] = user
			}

			semester := models.SemesterFirst
			for i, r := range demoResources {
				uploader := byEmail[r.uploader]
				uploaderID := uploader.ID
				res := &models.Resource{
					Title:           r.title,
					CourseCode:      r.courseCode,
					Description:     "Seeded demo material.",
					College:         "College of Basic and Applied Sciences",
					Department:      r.department,
					Programme:       r.programme,
					Level:           r.level,
					Semester:        &semester,
					UploadedBy:      uploader.FullName,
					UploadedByID:    &uploaderID,
					UploadedByEmail: uploader.Email,
					UploaderRole:    uploader.Role,
					Date:            time.Now().UTC().AddDate(0, 0, -i),
					FileType:        r.fileType,
					FileURL:         fmt.Sprintf("%s%s/files/%s/seed/%d.%s", e.cfg.PublicURL, e.cfg.APIPrefix, e.cfg.Storage.Bucket, i+1, fileExtension(r.fileType)),
					Tags:            pq.StringArray(r.tags),
					Downloads:       r.downloads,
					Status:          models.ResourceStatusApproved,
				}
				if err := resources.Create(ctx, res); err != nil {
					return err
				}
			}

			e.logger.Info("seed complete", zap.Int("users", len(demoUsers)), zap.Int("resources", len(demoResources)))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "studybase123", "password for every demo account")
	return cmd
}

func fileExtension(fileType string) string {
	switch fileType {
	case "DOCX":
		return "docx"
	case "PPTX":
		return "pptx"
	default:
		return "pdf"
	}
}
