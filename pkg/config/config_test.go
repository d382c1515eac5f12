package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 12, cfg.Search.PageSize)
	assert.Equal(t, 10, cfg.Search.ExamPrepPageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.DebounceWindow)
	assert.Equal(t, "openai", cfg.StudyAid.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.StudyAid.Model)
	assert.InDelta(t, 0.7, cfg.StudyAid.Temperature, 0.0001)
	assert.Equal(t, 50000, cfg.StudyAid.MaxContentChars)
	assert.Equal(t, 30000, cfg.StudyAid.FlashcardContentChars)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, "course-materials", cfg.Storage.Bucket)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEARCH_PAGE_SIZE", "24")
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DOWNLOAD_RETRY_DELAY", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Search.PageSize)
	assert.Equal(t, "gemini", cfg.StudyAid.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.StudyAid.Model)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Second, cfg.Downloads.RetryDelay)
}

func TestExplicitModelWinsOverProviderDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("AI_MODEL", "gemini-1.5-pro")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", cfg.StudyAid.Model)
	assert.Equal(t, "gpt-4o-mini", modelFor("openai", " "))
}
