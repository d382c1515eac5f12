package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

const (
	statsCachePattern  = "stats:*"
	portalStatsKey     = "stats:portal"
	departmentStatsKey = "stats:departments:%s"
)

type statsRepository interface {
	PortalTotals(ctx context.Context) (resources, courses, departments int, err error)
	Recent(ctx context.Context, limit int) ([]models.Resource, error)
	DepartmentCounts(ctx context.Context, level string) ([]models.DepartmentCount, error)
}

// StatsServiceConfig tunes landing statistics.
type StatsServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// StatsService builds the landing page summary and per-department counts.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    StatsServiceConfig
}

// NewStatsService constructs a StatsService. cache may be nil.
func NewStatsService(repo statsRepository, cache *CacheService, logger *zap.Logger, cfg StatsServiceConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 3
	}
	return &StatsService{repo: repo, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Portal returns totals and the most recent approved uploads. The bool reports a cache hit.
func (s *StatsService) Portal(ctx context.Context) (*models.PortalStats, bool, error) {
	var cached models.PortalStats
	if hit, _ := s.cache.Get(ctx, portalStatsKey, &cached); hit {
		return &cached, true, nil
	}

	stats := &models.PortalStats{GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalResources, stats.UniqueCourses, stats.UniqueDepartments, err = s.repo.PortalTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Recent, err = s.repo.Recent(gctx, s.cfg.RecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load portal stats")
	}

	_ = s.cache.Set(ctx, portalStatsKey, stats, s.cfg.CacheTTL)
	return stats, false, nil
}

// DepartmentCounts returns approved file counts per department, optionally for one level.
func (s *StatsService) DepartmentCounts(ctx context.Context, level string) ([]models.DepartmentCount, bool, error) {
	if level != "" && level != models.FacetAll && !models.ValidLevel(level) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid level %q", level))
	}
	if level == "" {
		level = models.FacetAll
	}
	key := fmt.Sprintf(departmentStatsKey, level)

	var cached []models.DepartmentCount
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}
	counts, err := s.repo.DepartmentCounts(ctx, level)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department counts")
	}
	_ = s.cache.Set(ctx, key, counts, s.cfg.CacheTTL)
	return counts, false, nil
}
