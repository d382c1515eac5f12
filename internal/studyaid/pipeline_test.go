package studyaid

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/pkg/llm"

	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type fakeLLM struct {
	mu         sync.Mutex
	reply      string
	err        error
	configured bool
	prompts    []llm.Prompt
	block      chan struct{}
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Configured() bool { return f.configured }

func (f *fakeLLM) Complete(ctx context.Context, prompt llm.Prompt) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.reply, f.err
}

func (f *fakeLLM) lastPrompt() llm.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

type fakeExtractor struct {
	text  string
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, fileURL, fileType string) string {
	f.calls++
	return f.text
}

type fakeRecorder struct {
	requests  int
	failures  int
	fallbacks []string
}

func (r *fakeRecorder) ObserveLLMRequest(kind string, err error) {
	r.requests++
	if err != nil {
		r.failures++
	}
}

func (r *fakeRecorder) RecordFlashcardFallback(reason string) {
	r.fallbacks = append(r.fallbacks, reason)
}

var doc = models.Document{ResourceID: "r1", Title: "Cell Biology", Description: "Membranes and transport", FileURL: "https://files/cell.pdf", FileType: "PDF"}

func TestFlashcardsParsesModelOutput(t *testing.T) {
	client := &fakeLLM{configured: true, reply: "Here you go:\n```json\n[{\"question\":\"Q1\",\"answer\":\"A1\"}]\n```"}
	ext := &fakeExtractor{text: strings.Repeat("x", 40)}
	p := NewPipeline(client, ext, Options{Model: "gpt-4o-mini", Temperature: 0.7, FlashcardContentChars: 10})

	res := p.Flashcards(context.Background(), doc)
	require.Len(t, res.Cards, FlashcardCount)
	assert.False(t, res.Fallback)
	assert.Equal(t, "fenced", res.Strategy)
	assert.Equal(t, "Q1", res.Cards[0].Question)
	assert.Equal(t, 1, ext.calls)

	prompt := client.lastPrompt()
	assert.Equal(t, "gpt-4o-mini", prompt.Model)
	assert.InDelta(t, 0.7, prompt.Temperature, 0.0001)
	assert.Contains(t, prompt.User, `Document Title: "Cell Biology"`)
	assert.Contains(t, prompt.User, "Document Content:\n"+strings.Repeat("x", 10)+"\n")
	assert.NotContains(t, prompt.User, strings.Repeat("x", 11))
}

func TestFlashcardsFallbackPaths(t *testing.T) {
	cases := []struct {
		name   string
		client *fakeLLM
		reason string
	}{
		{"invalid json", &fakeLLM{configured: true, reply: "Sorry, no cards today."}, ReasonUnparseable},
		{"empty output", &fakeLLM{configured: true, reply: "   "}, ReasonEmptyResponse},
		{"request failure", &fakeLLM{configured: true, err: errors.New("connection reset")}, ReasonRequestFailed},
		{"missing credential", &fakeLLM{err: llm.ErrMissingCredential}, ReasonNotConfigured},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			p := NewPipeline(tc.client, &fakeExtractor{}, Options{Recorder: rec})
			res := p.Flashcards(context.Background(), doc)
			require.Len(t, res.Cards, FlashcardCount)
			assert.True(t, res.Fallback)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, FallbackFlashcards(doc.Title, doc.Description), res.Cards)
			assert.Equal(t, []string{tc.reason}, rec.fallbacks)
		})
	}
}

func TestFlashcardsWithoutFileSkipsExtraction(t *testing.T) {
	client := &fakeLLM{configured: true, reply: `[{"question":"Q","answer":"A"}]`}
	ext := &fakeExtractor{text: "unused"}
	p := NewPipeline(client, ext, Options{})

	res := p.Flashcards(context.Background(), models.Document{Title: "Untitled"})
	assert.Len(t, res.Cards, FlashcardCount)
	assert.Zero(t, ext.calls)
	assert.Contains(t, client.lastPrompt().User, "No file content available.")
}

func TestAnswerErrors(t *testing.T) {
	p := NewPipeline(&fakeLLM{err: llm.ErrMissingCredential}, nil, Options{})
	_, err := p.Answer(context.Background(), doc, "What is osmosis?")
	assert.ErrorIs(t, err, appErrors.ErrAINotConfigured)
	assert.Equal(t, appErrors.ErrAINotConfigured.Message, appErrors.FromError(err).Message)

	p = NewPipeline(&fakeLLM{configured: true, err: errors.New("503")}, nil, Options{})
	_, err = p.Answer(context.Background(), doc, "What is osmosis?")
	assert.ErrorIs(t, err, appErrors.ErrAIRequest)

	p = NewPipeline(&fakeLLM{configured: true, reply: ""}, nil, Options{})
	answer, err := p.Answer(context.Background(), doc, "What is osmosis?")
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, answer)
}

func TestAnswerUsesFullContent(t *testing.T) {
	client := &fakeLLM{configured: true, reply: "Diffusion of water."}
	content := strings.Repeat("y", 35000)
	p := NewPipeline(client, &fakeExtractor{text: content}, Options{FlashcardContentChars: 100})

	answer, err := p.Answer(context.Background(), doc, "What is osmosis?")
	require.NoError(t, err)
	assert.Equal(t, "Diffusion of water.", answer)
	assert.Contains(t, client.lastPrompt().User, content)
	assert.Contains(t, client.lastPrompt().User, `User Question: "What is osmosis?"`)
	assert.Contains(t, client.lastPrompt().System, "only the provided content")
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewPipeline(nil, nil, Options{}).Configured())
	assert.True(t, NewPipeline(&fakeLLM{configured: true}, nil, Options{}).Configured())
}
