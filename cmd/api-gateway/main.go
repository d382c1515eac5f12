package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studybase-api/api/swagger"
	"github.com/noah-isme/studybase-api/internal/handler"
	"github.com/noah-isme/studybase-api/internal/repository"
	"github.com/noah-isme/studybase-api/internal/search"
	"github.com/noah-isme/studybase-api/internal/service"
	"github.com/noah-isme/studybase-api/internal/session"
	"github.com/noah-isme/studybase-api/internal/studyaid"
	"github.com/noah-isme/studybase-api/pkg/cache"
	"github.com/noah-isme/studybase-api/pkg/config"
	"github.com/noah-isme/studybase-api/pkg/database"
	"github.com/noah-isme/studybase-api/pkg/extract"
	"github.com/noah-isme/studybase-api/pkg/jobs"
	"github.com/noah-isme/studybase-api/pkg/llm"
	"github.com/noah-isme/studybase-api/pkg/logger"
	"github.com/noah-isme/studybase-api/pkg/storage"
)

// @title StudyBase API
// @version 1.0.0
// @description Course material portal: faceted search, uploads, download counting and an AI study aid.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	shutdownTimeout   = 10 * time.Second
	memoryStoreSize   = 100000
	signOutCutoffSize = 10000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	app.close()
}

// app holds the long-lived components that need an orderly shutdown.
type app struct {
	router    *gin.Engine
	logger    *zap.Logger
	closers   []func()
	scheduler *cron.Cron
}

func (a *app) close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{logger: logr}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("versions", applied))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-process stores", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	var claims interface {
		Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	}
	var signOuts interface {
		SetCutoff(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
		Cutoff(ctx context.Context, userID string) (time.Time, bool, error)
	}
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		claims = repository.NewIdempotencyRepository(redisClient)
		signOuts = repository.NewSignOutRepository(redisClient)
	} else {
		claims = repository.NewMemoryIdempotencyRepository(memoryStoreSize, cfg.Downloads.IdempotencyTTL)
		signOuts = repository.NewMemorySignOutRepository(signOutCutoffSize, cfg.JWT.Expiration)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	userRepo := repository.NewUserRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	hub := session.NewHub(logr)
	a.closers = append(a.closers, hub.Close)

	authSvc := service.NewAuthService(userRepo, signOuts, hub, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	filesBaseURL := strings.TrimRight(cfg.PublicURL, "/") + apiPrefix(cfg) + "/files"
	objects, err := storage.NewObjectStore(ctx, cfg.Storage, filesBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	resourceSvc := service.NewResourceService(resourceRepo, objects, userRepo, cacheSvc, validate, logr, service.ResourceServiceConfig{
		PageSize:         cfg.Search.PageSize,
		ExamPrepPageSize: cfg.Search.ExamPrepPageSize,
		RelatedLimit:     cfg.Search.RelatedLimit,
		MaxUploadBytes:   cfg.Storage.MaxUploadBytes,
	})
	statsSvc := service.NewStatsService(resourceRepo, cacheSvc, logr, service.StatsServiceConfig{
		CacheTTL:    cfg.Stats.CacheTTL,
		RecentLimit: cfg.Stats.RecentLimit,
	})
	catalogSvc := service.NewCatalogService()

	worker := service.NewDownloadWorker(resourceRepo, metricsSvc, logr)
	downloadQueue := jobs.NewQueue("downloads", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Downloads.Workers,
		BufferSize:  cfg.Downloads.BufferSize,
		MaxRetries:  cfg.Downloads.MaxRetries,
		RetryDelay:  cfg.Downloads.RetryDelay,
		OnExhausted: worker.Exhausted,
		Logger:      logr,
	})
	downloadQueue.Start(context.Background())
	a.closers = append(a.closers, downloadQueue.Stop)
	downloadSvc := service.NewDownloadService(resourceRepo, claims, downloadQueue, metricsSvc, logr, cfg.Downloads.IdempotencyTTL)

	sessionCfg := service.SearchSessionConfig{
		PageSize:         cfg.Search.PageSize,
		ExamPrepPageSize: cfg.Search.ExamPrepPageSize,
		Debounce:         cfg.Search.DebounceWindow,
		TTL:              cfg.Search.SessionTTL,
		MaxSessions:      cfg.Search.MaxSessions,
	}
	searchSvc := service.NewSearchSessionService(search.FetcherFunc(resourceSvc.Search), hub, logr, sessionCfg)
	a.closers = append(a.closers, searchSvc.Shutdown)

	llmClient, err := llm.New(llm.Options{
		Provider:      cfg.StudyAid.Provider,
		OpenAIAPIKey:  cfg.StudyAid.OpenAIAPIKey,
		OpenAIBaseURL: cfg.StudyAid.OpenAIBaseURL,
		GeminiAPIKey:  cfg.StudyAid.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	extractor := service.NewCachedExtractor(extract.New(extract.Options{
		Timeout:  cfg.StudyAid.FetchTimeout,
		MaxBytes: cfg.StudyAid.MaxFetchBytes,
		MaxChars: cfg.StudyAid.MaxContentChars,
		Logger:   logr,
	}), cacheSvc, cfg.StudyAid.ExtractCacheTTL)
	pipeline := studyaid.NewPipeline(llmClient, extractor, studyaid.Options{
		Model:                 cfg.StudyAid.Model,
		Temperature:           cfg.StudyAid.Temperature,
		FlashcardContentChars: cfg.StudyAid.FlashcardContentChars,
		Recorder:              metricsSvc,
		Logger:                logr,
	})
	studyAidSvc := service.NewStudyAidService(pipeline, resourceRepo, hub, logr, service.StudyAidConfig{
		ChatTTL:         cfg.StudyAid.ChatSessionTTL,
		MaxChats:        cfg.StudyAid.MaxChatSessions,
		FileURLPrefixes: []string{objects.URL("")},
	})
	a.closers = append(a.closers, studyAidSvc.Shutdown)

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	exportSvc := service.NewExportService(
		exportFiles,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		userRepo,
		service.ExportConfig{APIPrefix: apiPrefix(cfg), Retention: cfg.Exports.Retention},
		logr,
		nil,
		nil,
	)
	a.scheduler = cron.New()
	if _, err := exportSvc.ScheduleCleanup(a.scheduler, cfg.Exports.CleanupSchedule); err != nil {
		return nil, fmt.Errorf("schedule export cleanup: %w", err)
	}
	a.scheduler.Start()

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = redisPinger(redisClient)
	}

	var files *handler.FileHandler
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == config.StorageDriverLocal {
		files = handler.NewFileHandler(objects, cfg.Storage.Bucket)
	}

	a.router = newRouter(cfg, logr, routes{
		auth:      authSvc,
		audit:     userRepo,
		metrics:   metricsSvc,
		health:    handler.NewMetricsHandler(metricsSvc, checks),
		authH:     handler.NewAuthHandler(authSvc),
		resources: handler.NewResourceHandler(resourceSvc, downloadSvc, searchSvc),
		catalog:   handler.NewCatalogHandler(catalogSvc, statsSvc),
		sessions:  handler.NewSearchSessionHandler(searchSvc),
		studyAid:  handler.NewStudyAidHandler(studyAidSvc, exportSvc),
		files:     files,
	})
	return a, nil
}

func redisPinger(client *redis.Client) handler.Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func apiPrefix(cfg *config.Config) string {
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		return "/api/v1"
	}
	return prefix
}
