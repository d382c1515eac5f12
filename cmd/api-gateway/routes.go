package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/handler"
	"github.com/noah-isme/studybase-api/internal/middleware"
	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/service"
	"github.com/noah-isme/studybase-api/pkg/config"
	"github.com/noah-isme/studybase-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studybase-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studybase-api/pkg/middleware/requestid"
)

type routes struct {
	auth    middleware.Authenticator
	audit   middleware.AuditWriter
	metrics *service.MetricsService

	health    *handler.MetricsHandler
	authH     *handler.AuthHandler
	resources *handler.ResourceHandler
	catalog   *handler.CatalogHandler
	sessions  *handler.SearchSessionHandler
	studyAid  *handler.StudyAidHandler
	files     *handler.FileHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, rt routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(rt.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", rt.health.Health)
	r.GET("/ready", rt.health.Ready)
	r.GET("/metrics", rt.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(rt.auth)
	authOptional := middleware.OptionalJWT(rt.auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api := r.Group(apiPrefix(cfg))

	auth := api.Group("/auth")
	auth.POST("/register", rt.authH.Register)
	auth.POST("/login", rt.authH.Login)
	auth.POST("/refresh", rt.authH.Refresh)
	auth.POST("/logout", authRequired, rt.authH.Logout)
	auth.GET("/me", authRequired, rt.authH.Me)

	resources := api.Group("/resources")
	resources.GET("", rt.resources.Search)
	resources.GET("/exam-prep", rt.resources.ExamPrep)
	resources.GET("/:id", authOptional, rt.resources.Get)
	resources.POST("", authRequired, middleware.RequireUploader(), rt.resources.Upload)
	resources.DELETE("/:id", authRequired, middleware.RequireUploader(), rt.resources.Delete)
	resources.PATCH("/:id/status", authRequired, adminOnly, rt.resources.UpdateStatus)
	resources.POST("/:id/downloads", authOptional, rt.resources.RecordDownload)

	me := api.Group("/me", authRequired)
	me.GET("/uploads", rt.resources.MyUploads)
	me.GET("/uploads/stats", middleware.RequireUploader(), rt.resources.UploaderStats)

	if rt.files != nil {
		api.GET("/files/:bucket/*key", rt.files.Serve)
	}

	catalog := api.Group("/catalog")
	catalog.GET("/colleges", rt.catalog.Colleges)
	catalog.GET("/colleges/:code/departments", rt.catalog.Departments)
	catalog.GET("/programmes", rt.catalog.Programmes)
	catalog.GET("/levels", rt.catalog.Levels)
	catalog.GET("/file-types", rt.catalog.FileTypes)
	catalog.GET("/department-counts", rt.catalog.DepartmentCounts)
	api.GET("/stats", rt.catalog.Stats)

	sessions := api.Group("/search/sessions", authRequired)
	sessions.POST("", rt.sessions.Create)
	sessions.GET("/:id", rt.sessions.Get)
	sessions.POST("/:id/actions", rt.sessions.Dispatch)
	sessions.GET("/:id/stream", rt.sessions.Stream)
	sessions.DELETE("/:id", rt.sessions.Close)

	api.POST("/ai", authOptional, middleware.Audit(rt.audit, logr, models.AuditActionStudyAid, "ai"), rt.studyAid.AI)

	studyAid := api.Group("/study-aid", authRequired)
	studyAid.POST("/chats", rt.studyAid.CreateChat)
	studyAid.GET("/chats/:id", rt.studyAid.GetChat)
	studyAid.POST("/chats/:id/messages", rt.studyAid.Ask)
	studyAid.DELETE("/chats/:id", rt.studyAid.CloseChat)
	studyAid.POST("/flashcards/export", rt.studyAid.ExportFlashcards)

	api.GET("/exports/:token", middleware.Audit(rt.audit, logr, models.AuditActionExportDownload, "export"), rt.studyAid.DownloadExport)

	admin := api.Group("/admin", authRequired, adminOnly)
	admin.GET("/metrics", rt.health.Summary)

	return r
}
