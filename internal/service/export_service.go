package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/export"
	"github.com/noah-isme/studybase-api/pkg/storage"
)

const exportStampLayout = "20060102_150405"

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	Retention time.Duration
}

// ExportService renders flashcard batches to CSV or PDF and hands out signed download links.
type ExportService struct {
	storage   fileStorage
	renderers map[models.ExportFormat]datasetRenderer
	signer    *storage.SignedURLSigner
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers default to the stock exporters.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, audit auditWriter, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 48 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: files,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportFormatCSV: csv,
			models.ExportFormatPDF: pdf,
		},
		signer:    signer,
		audit:     audit,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// ExportFlashcards renders the batch and stores it under the actor's directory.
func (s *ExportService) ExportFlashcards(ctx context.Context, actor *models.Actor, req models.FlashcardExportRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	renderer := s.renderers[req.Format]

	payload, err := renderer.Render(flashcardDataset(req.Flashcards), req.Title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("%s.%s", sanitizeFilename(req.Title), req.Format)
	relPath := fmt.Sprintf("%s/%s_%s", actor.UserID, s.now().UTC().Format(exportStampLayout), filename)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(actor.UserID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	if s.audit != nil {
		userID := actor.UserID
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    &userID,
			Action:    models.AuditActionFlashcardExport,
			Resource:  "export",
			NewValues: []byte(fmt.Sprintf(`{"format":%q,"cards":%d}`, req.Format, len(req.Flashcards))),
		}); err != nil {
			s.logger.Warn("failed to record export audit log", zap.Error(err))
		}
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &models.ExportResult{
		Filename:  filename,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	Filename    string
	ContentType string
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}

	name := path.Base(relPath)
	if len(name) > len(exportStampLayout)+1 {
		name = name[len(exportStampLayout)+1:]
	}
	contentType := "application/octet-stream"
	for format, renderer := range s.renderers {
		if strings.HasSuffix(relPath, "."+string(format)) {
			contentType = renderer.ContentType()
		}
	}
	return &ExportFile{File: file, Filename: name, ContentType: contentType}, nil
}

// Cleanup removes exports older than the retention window.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.Retention)
}

// ScheduleCleanup registers Cleanup on c with a cron spec.
func (s *ExportService) ScheduleCleanup(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		removed, err := s.Cleanup()
		if err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
			return
		}
		if len(removed) > 0 {
			s.logger.Info("export cleanup removed files", zap.Int("count", len(removed)))
		}
	})
}

func flashcardDataset(cards []models.Flashcard) export.Dataset {
	rows := make([]map[string]string, 0, len(cards))
	for i, card := range cards {
		rows = append(rows, map[string]string{
			"No.":      strconv.Itoa(i + 1),
			"Question": card.Question,
			"Answer":   card.Answer,
		})
	}
	return export.Dataset{Headers: []string{"No.", "Question", "Answer"}, Rows: rows}
}

func sanitizeFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "flashcards"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", ".", "-")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
