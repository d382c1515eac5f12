package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studybase-api/internal/models"
)

const resourceColumns = "id, title, course_code, COALESCE(description, '') AS description, college, department, programme, level, semester, uploaded_by, uploaded_by_id, uploaded_by_email, uploader_role, date, file_type, file_url, storage_key, file_size, tags, downloads, status, created_at, updated_at"

// maxSearchOffset bounds OFFSET so huge page numbers cannot overflow into a negative offset.
const maxSearchOffset = math.MaxInt32

// examTags mark a resource as exam preparation material.
var examTags = []string{"exam", "past question", "past questions"}

// ResourceRepository provides database access for course materials.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new instance of ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Search returns one page of approved resources matching filter plus the total match count.
func (r *ResourceRepository) Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error) {
	where, args := buildResourceWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}

	resources := make([]models.Resource, 0)
	if page-1 <= maxSearchOffset/pageSize {
		offset := (page - 1) * pageSize
		listQuery := fmt.Sprintf("SELECT %s FROM resources WHERE %s ORDER BY date DESC, created_at ASC LIMIT %d OFFSET %d", resourceColumns, where, pageSize, offset)
		if err := r.db.SelectContext(ctx, &resources, listQuery, args...); err != nil {
			return nil, 0, fmt.Errorf("search resources: %w", err)
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM resources WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}
	return resources, total, nil
}

func buildResourceWhere(filter models.ResourceFilter) (string, []interface{}) {
	conditions := []string{"status = $1"}
	args := []interface{}{string(models.ResourceStatusApproved)}

	eq := func(column, value string) {
		if !facetActive(value) {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	contains := func(column, value string) {
		if !facetActive(value) {
			return
		}
		args = append(args, "%"+escapeLike(strings.TrimSpace(value))+"%")
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}

	eq("college", filter.College)
	eq("department", filter.Department)
	eq("level", filter.Level)
	eq("file_type", filter.FileType)
	eq("uploader_role", filter.UploaderRole)
	contains("programme", filter.Programme)
	contains("course_code", filter.CourseCode)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR course_code ILIKE $%d)", len(args), len(args)))
	}
	if filter.ExamOnly {
		args = append(args, pq.Array(examTags))
		conditions = append(conditions, fmt.Sprintf("(tags && $%d OR title ILIKE '%%past question%%' OR title ILIKE '%%exam%%')", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

func facetActive(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, models.FacetAll)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// FindByID returns a resource regardless of status.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources WHERE id = $1 LIMIT 1"
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &res, nil
}

// Related returns approved resources sharing the course code or department of res.
func (r *ResourceRepository) Related(ctx context.Context, res *models.Resource, limit int) ([]models.Resource, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf("SELECT %s FROM resources WHERE status = $1 AND id <> $2 AND (course_code = $3 OR department = $4) ORDER BY date DESC, created_at ASC LIMIT %d", resourceColumns, limit)
	related := make([]models.Resource, 0, limit)
	if err := r.db.SelectContext(ctx, &related, query, string(models.ResourceStatusApproved), res.ID, res.CourseCode, res.Department); err != nil {
		return nil, fmt.Errorf("related resources: %w", err)
	}
	return related, nil
}

// Create inserts a new resource record.
func (r *ResourceRepository) Create(ctx context.Context, res *models.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	if res.Date.IsZero() {
		res.Date = now
	}
	res.UpdatedAt = now
	if res.Tags == nil {
		res.Tags = pq.StringArray{}
	}
	if res.Status == "" {
		res.Status = models.ResourceStatusPending
	}

	const query = `INSERT INTO resources (id, title, course_code, description, college, department, programme, level, semester, uploaded_by, uploaded_by_id, uploaded_by_email, uploader_role, date, file_type, file_url, storage_key, file_size, tags, downloads, status, created_at, updated_at)
VALUES (:id, :title, :course_code, :description, :college, :department, :programme, :level, :semester, :uploaded_by, :uploaded_by_id, :uploaded_by_email, :uploader_role, :date, :file_type, :file_url, :storage_key, :file_size, :tags, :downloads, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Delete removes a resource row.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return expectAffected(result)
}

// UpdateStatus moves a resource through moderation.
func (r *ResourceRepository) UpdateStatus(ctx context.Context, id string, status models.ResourceStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE resources SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	return expectAffected(result)
}

// IncrementDownloads atomically adds one download and returns the stored count.
func (r *ResourceRepository) IncrementDownloads(ctx context.Context, id string) (int, error) {
	var downloads int
	if err := r.db.GetContext(ctx, &downloads, `UPDATE resources SET downloads = downloads + 1 WHERE id = $1 RETURNING downloads`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("increment downloads: %w", err)
	}
	return downloads, nil
}

// ListByUploader returns every resource uploaded by userID, newest first.
func (r *ResourceRepository) ListByUploader(ctx context.Context, userID string, limit int) ([]models.Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources WHERE uploaded_by_id = $1 ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	resources := make([]models.Resource, 0)
	if err := r.db.SelectContext(ctx, &resources, query, userID); err != nil {
		return nil, fmt.Errorf("list uploader resources: %w", err)
	}
	return resources, nil
}

type uploaderTotals struct {
	Total     int `db:"total"`
	Downloads int `db:"downloads"`
	Pending   int `db:"pending"`
	Approved  int `db:"approved"`
	Rejected  int `db:"rejected"`
}

// UploaderTotals aggregates counts for one uploader.
func (r *ResourceRepository) UploaderTotals(ctx context.Context, userID string) (*models.UploaderStats, error) {
	const query = `SELECT COUNT(*) AS total,
COALESCE(SUM(downloads), 0) AS downloads,
COUNT(*) FILTER (WHERE status = 'pending') AS pending,
COUNT(*) FILTER (WHERE status = 'approved') AS approved,
COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
FROM resources WHERE uploaded_by_id = $1`
	var totals uploaderTotals
	if err := r.db.GetContext(ctx, &totals, query, userID); err != nil {
		return nil, fmt.Errorf("uploader totals: %w", err)
	}
	return &models.UploaderStats{
		TotalUploads:   totals.Total,
		TotalDownloads: totals.Downloads,
		Pending:        totals.Pending,
		Approved:       totals.Approved,
		Rejected:       totals.Rejected,
	}, nil
}

type portalTotals struct {
	Resources   int `db:"resources"`
	Courses     int `db:"courses"`
	Departments int `db:"departments"`
}

// PortalTotals counts approved resources, distinct course codes and distinct departments.
func (r *ResourceRepository) PortalTotals(ctx context.Context) (resources, courses, departments int, err error) {
	const query = `SELECT COUNT(*) AS resources, COUNT(DISTINCT course_code) AS courses, COUNT(DISTINCT department) AS departments FROM resources WHERE status = $1`
	var totals portalTotals
	if err := r.db.GetContext(ctx, &totals, query, string(models.ResourceStatusApproved)); err != nil {
		return 0, 0, 0, fmt.Errorf("portal totals: %w", err)
	}
	return totals.Resources, totals.Courses, totals.Departments, nil
}

// Recent returns the newest approved resources.
func (r *ResourceRepository) Recent(ctx context.Context, limit int) ([]models.Resource, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf("SELECT %s FROM resources WHERE status = $1 ORDER BY date DESC, created_at DESC LIMIT %d", resourceColumns, limit)
	resources := make([]models.Resource, 0, limit)
	if err := r.db.SelectContext(ctx, &resources, query, string(models.ResourceStatusApproved)); err != nil {
		return nil, fmt.Errorf("recent resources: %w", err)
	}
	return resources, nil
}

// DepartmentCounts returns approved file counts per department, optionally for one level.
func (r *ResourceRepository) DepartmentCounts(ctx context.Context, level string) ([]models.DepartmentCount, error) {
	query := "SELECT department, COUNT(*) AS files FROM resources WHERE status = $1"
	args := []interface{}{string(models.ResourceStatusApproved)}
	if facetActive(level) {
		args = append(args, level)
		query += fmt.Sprintf(" AND level = $%d", len(args))
	}
	query += " GROUP BY department ORDER BY department"

	counts := make([]models.DepartmentCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	return counts, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
