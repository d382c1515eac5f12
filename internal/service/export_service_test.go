package service

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *recordingAudit) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	audit := &recordingAudit{}
	svc := NewExportService(store, signer, audit, ExportConfig{APIPrefix: "/api/v1/", Retention: time.Hour}, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC) }
	return svc, store, audit
}

func sampleDeck() []models.Flashcard {
	return []models.Flashcard{
		{Question: "What is osmosis?", Answer: "Diffusion of water across a membrane"},
		{Question: "Define ATP", Answer: "The energy currency of the cell"},
	}
}

func TestExportFlashcardsCSV(t *testing.T) {
	svc, store, audit := newExportServiceForTest(t)

	result, err := svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{
		Title:      "Cell Biology: Week 2",
		Format:     models.ExportFormatCSV,
		Flashcards: sampleDeck(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cell_Biology-_Week_2.csv", result.Filename)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionFlashcardExport, audit.logs[0].Action)

	path, err := store.Path("stud-1/20260309_143000_Cell_Biology-_Week_2.csv")
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "No.,Question,Answer")
	assert.Contains(t, string(raw), "2,Define ATP,The energy currency of the cell")

	file, err := svc.Open(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	defer file.File.Close()
	assert.Equal(t, "Cell_Biology-_Week_2.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	body, err := io.ReadAll(file.File)
	require.NoError(t, err)
	assert.Equal(t, raw, body)
}

func TestExportFlashcardsPDF(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	result, err := svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{
		Title:      "",
		Format:     models.ExportFormatPDF,
		Flashcards: sampleDeck(),
	})
	require.Error(t, err, "title is required")
	assert.Nil(t, result)

	result, err = svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{
		Title:      "Genetics",
		Format:     models.ExportFormatPDF,
		Flashcards: sampleDeck(),
	})
	require.NoError(t, err)

	file, err := svc.Open(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	require.NoError(t, err)
	defer file.File.Close()
	assert.Equal(t, "application/pdf", file.ContentType)
	head := make([]byte, 4)
	_, err = io.ReadFull(file.File, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportFlashcardsValidation(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{Title: "x", Format: "xlsx", Flashcards: sampleDeck()})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{Title: "x", Format: models.ExportFormatCSV})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportOpenRejectsBadTokens(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Open("not-a-token")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	other := storage.NewSignedURLSigner("other-secret", time.Hour)
	token, _, err := other.Generate("stud-1", "stud-1/file.csv")
	require.NoError(t, err)
	_, err = svc.Open(token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportCleanupRemovesOldFiles(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)

	result, err := svc.ExportFlashcards(context.Background(), actorStudent, models.FlashcardExportRequest{Title: "Old", Format: models.ExportFormatCSV, Flashcards: sampleDeck()})
	require.NoError(t, err)
	path, err := store.Path("stud-1/20260309_143000_Old.csv")
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, []string{"stud-1/20260309_143000_Old.csv"}, removed)

	_, err = svc.Open(strings.TrimPrefix(result.URL, "/api/v1/exports/"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportScheduleCleanup(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	c := cron.New()

	id, err := svc.ScheduleCleanup(c, "@every 1h")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = svc.ScheduleCleanup(c, "not a schedule")
	assert.Error(t, err)
}
