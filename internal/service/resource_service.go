package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/storage"
)

const (
	maxPageSize       = 100
	uploaderRecentMax = 5
)

type resourceStore interface {
	Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error)
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	Related(ctx context.Context, res *models.Resource, limit int) ([]models.Resource, error)
	Create(ctx context.Context, res *models.Resource) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.ResourceStatus) error
	ListByUploader(ctx context.Context, userID string, limit int) ([]models.Resource, error)
	UploaderTotals(ctx context.Context, userID string) (*models.UploaderStats, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ResourceServiceConfig tunes paging and upload limits.
type ResourceServiceConfig struct {
	PageSize         int
	ExamPrepPageSize int
	RelatedLimit     int
	MaxUploadBytes   int64
}

// ResourceService implements browsing, upload and moderation of course materials.
type ResourceService struct {
	repo      resourceStore
	objects   storage.ObjectStore
	audit     auditWriter
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ResourceServiceConfig
}

// NewResourceService constructs a ResourceService. audit and cache may be nil.
func NewResourceService(repo resourceStore, objects storage.ObjectStore, audit auditWriter, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, cfg ResourceServiceConfig) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.ExamPrepPageSize <= 0 {
		cfg.ExamPrepPageSize = 10
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = 3
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &ResourceService{repo: repo, objects: objects, audit: audit, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// Search returns one page of approved resources.
func (s *ResourceService) Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	return s.search(ctx, filter, s.cfg.PageSize)
}

// ExamPrep searches only exam preparation material.
func (s *ResourceService) ExamPrep(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	filter.ExamOnly = true
	return s.search(ctx, filter, s.cfg.ExamPrepPageSize)
}

func (s *ResourceService) search(ctx context.Context, filter models.ResourceFilter, defaultSize int) ([]models.Resource, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	filter.College = models.CollegeName(filter.College)

	resources, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search resources")
	}
	return resources, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a resource. Unapproved resources are visible only to their uploader and admins.
func (s *ResourceService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if res.Status != models.ResourceStatusApproved && !canManage(actor, res) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	return res, nil
}

// Detail returns a resource with up to RelatedLimit related materials.
func (s *ResourceService) Detail(ctx context.Context, actor *models.Actor, id string) (*models.ResourceDetail, error) {
	res, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	related, err := s.repo.Related(ctx, res, s.cfg.RelatedLimit)
	if err != nil {
		s.logger.Warn("failed to load related resources", zap.String("resource_id", id), zap.Error(err))
		related = []models.Resource{}
	}
	return &models.ResourceDetail{Resource: res, Related: related}, nil
}

// Upload stores the file and inserts a pending resource. Admin uploads are approved immediately.
func (s *ResourceService) Upload(ctx context.Context, actor *models.Actor, req models.UploadResourceRequest, file models.UploadFile) (*models.Resource, error) {
	if actor == nil || !actor.Role.CanUpload() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers, class reps and admins can upload")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	college, err := validateHierarchy(req)
	if err != nil {
		return nil, err
	}

	fileType := strings.ToUpper(strings.TrimPrefix(path.Ext(file.Name), "."))
	if !models.ValidFileType(fileType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFileType, fmt.Sprintf("file type %q is not supported", fileType))
	}
	if file.Size <= 0 || file.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if file.Size > s.cfg.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s/%s.%s", actor.UserID, id, strings.ToLower(fileType))
	obj, err := s.objects.Put(ctx, key, file.Body, file.Size, file.ContentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	status := models.ResourceStatusPending
	if actor.IsAdmin() {
		status = models.ResourceStatusApproved
	}
	uploaderID := actor.UserID
	res := &models.Resource{
		ID:              id,
		Title:           strings.TrimSpace(req.Title),
		CourseCode:      strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		Description:     strings.TrimSpace(req.Description),
		College:         college,
		Department:      req.Department,
		Programme:       strings.Join(req.Programmes, ", "),
		Level:           req.Level,
		UploadedBy:      actor.FullName,
		UploadedByID:    &uploaderID,
		UploadedByEmail: actor.Email,
		UploaderRole:    actor.Role,
		FileType:        fileType,
		FileURL:         obj.URL,
		StorageKey:      obj.Key,
		FileSize:        obj.Size,
		Tags:            normaliseTags(req.Tags),
		Status:          status,
	}
	if req.Semester != "" {
		semester := req.Semester
		res.Semester = &semester
	}

	if err := s.repo.Create(ctx, res); err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save resource")
	}

	s.record(ctx, actor, models.AuditActionResourceUpload, res.ID, fmt.Sprintf(`{"status":%q}`, res.Status))
	if status == models.ResourceStatusApproved {
		s.invalidateStats(ctx)
	}
	return res, nil
}

// Delete removes a resource and its file. Only the uploader or an admin may delete.
func (s *ResourceService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	res, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, res) {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own uploads")
	}
	if res.StorageKey != "" {
		if err := s.objects.Delete(ctx, res.StorageKey); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete resource")
	}
	s.record(ctx, actor, models.AuditActionResourceDelete, id, `{"status":"deleted"}`)
	s.invalidateStats(ctx)
	return nil
}

// UpdateStatus moderates a resource.
func (s *ResourceService) UpdateStatus(ctx context.Context, actor *models.Actor, id string, req models.UpdateResourceStatusRequest) (*models.Resource, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can moderate resources")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	res, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	s.record(ctx, actor, models.AuditActionResourceStatus, id, fmt.Sprintf(`{"from":%q,"to":%q}`, res.Status, req.Status))
	s.invalidateStats(ctx)
	res.Status = req.Status
	return res, nil
}

// MyUploads lists every resource the actor uploaded, any status.
func (s *ResourceService) MyUploads(ctx context.Context, actor *models.Actor) ([]models.Resource, error) {
	resources, err := s.repo.ListByUploader(ctx, actor.UserID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list uploads")
	}
	return resources, nil
}

// UploaderStats summarises the actor's uploads with their five most recent.
func (s *ResourceService) UploaderStats(ctx context.Context, actor *models.Actor) (*models.UploaderStats, error) {
	var (
		totals *models.UploaderStats
		recent []models.Resource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.UploaderTotals(gctx, actor.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.ListByUploader(gctx, actor.UserID, uploaderRecentMax)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load uploader stats")
	}
	totals.Recent = recent
	return totals, nil
}

func (s *ResourceService) find(ctx context.Context, id string) (*models.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return res, nil
}

func (s *ResourceService) record(ctx context.Context, actor *models.Actor, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	userID := actor.UserID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "resource",
		ResourceID: &resourceID,
		NewValues:  []byte(values),
	}); err != nil {
		s.logger.Warn("failed to record resource audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *ResourceService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, statsCachePattern); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func canManage(actor *models.Actor, res *models.Resource) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || res.OwnedBy(actor.UserID)
}

// validateHierarchy checks college, department, programmes and level, returning the college's full name.
func validateHierarchy(req models.UploadResourceRequest) (string, error) {
	college, ok := models.FindCollege(req.College)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown college %q", req.College))
	}
	if !containsString(models.DepartmentsFor(college.Code), req.Department) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("department %q is not part of %s", req.Department, college.Code))
	}
	programmes := models.ProgrammesFor(college.Code, req.Department)
	for _, p := range req.Programmes {
		if !containsString(programmes, p) {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("programme %q is not offered by %s", p, req.Department))
		}
	}
	if !models.ValidLevel(req.Level) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid level %q", req.Level))
	}
	return college.Name, nil
}

func normaliseTags(tags []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, part := range strings.Split(raw, ",") {
			tag := strings.ToLower(strings.TrimSpace(part))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
