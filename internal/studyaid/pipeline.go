package studyaid

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/pkg/llm"

	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

// Extractor returns the text of a stored file and never fails.
type Extractor interface {
	Extract(ctx context.Context, fileURL, fileType string) string
}

// Recorder receives pipeline instrumentation.
type Recorder interface {
	ObserveLLMRequest(kind string, err error)
	RecordFlashcardFallback(reason string)
}

// Fallback reasons.
const (
	ReasonNotConfigured = "not_configured"
	ReasonRequestFailed = "request_failed"
	ReasonEmptyResponse = "empty_response"
	ReasonUnparseable   = "unparseable"
)

// Options tunes a Pipeline.
type Options struct {
	Model                 string
	Temperature           float32
	FlashcardContentChars int
	Strategies            []Strategy
	Recorder              Recorder
	Logger                *zap.Logger
}

// FlashcardResult is one generated batch. Fallback is set when the generic cards were used
// for the whole batch.
type FlashcardResult struct {
	Cards    []models.Flashcard `json:"flashcards"`
	Fallback bool               `json:"fallback"`
	Reason   string             `json:"reason,omitempty"`
	Strategy string             `json:"strategy,omitempty"`
	Err      error              `json:"-"`
}

// Pipeline extracts document text and drives single-shot model calls over it.
type Pipeline struct {
	client     llm.Client
	extractor  Extractor
	model      string
	temp       float32
	cardChars  int
	strategies []Strategy
	recorder   Recorder
	logger     *zap.Logger
}

// NewPipeline wires a pipeline. A nil extractor disables file reading.
func NewPipeline(client llm.Client, extractor Extractor, opts Options) *Pipeline {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.FlashcardContentChars <= 0 {
		opts.FlashcardContentChars = 30000
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{
		client:     client,
		extractor:  extractor,
		model:      opts.Model,
		temp:       opts.Temperature,
		cardChars:  opts.FlashcardContentChars,
		strategies: opts.Strategies,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
}

// Configured reports whether a model credential is available.
func (p *Pipeline) Configured() bool {
	return p.client != nil && p.client.Configured()
}

// Content extracts the document text when it has a file reference.
func (p *Pipeline) Content(ctx context.Context, doc models.Document) string {
	if p.extractor == nil || strings.TrimSpace(doc.FileURL) == "" || strings.TrimSpace(doc.FileType) == "" {
		return ""
	}
	return p.extractor.Extract(ctx, doc.FileURL, doc.FileType)
}

// Flashcards always returns FlashcardCount cards.
func (p *Pipeline) Flashcards(ctx context.Context, doc models.Document) FlashcardResult {
	return p.FlashcardsFromContent(ctx, doc, p.Content(ctx, doc))
}

// FlashcardsFromContent generates cards from already extracted text. Every failure falls
// back to the generic batch; the cause is kept on the result.
func (p *Pipeline) FlashcardsFromContent(ctx context.Context, doc models.Document, content string) FlashcardResult {
	fallback := FallbackFlashcards(doc.Title, doc.Description)

	raw, err := p.complete(ctx, "flashcards", llm.Prompt{
		System: flashcardSystemPrompt,
		User:   flashcardUserPrompt(doc, content, p.cardChars),
	})
	if err != nil {
		reason := ReasonRequestFailed
		switch {
		case llm.IsMissingCredential(err):
			reason = ReasonNotConfigured
		case errors.Is(err, llm.ErrEmptyResponse):
			reason = ReasonEmptyResponse
		}
		return p.fallback(doc, fallback, reason, err)
	}

	cards, strategy, ok := ParseFlashcards(raw, p.strategies)
	if !ok {
		return p.fallback(doc, fallback, ReasonUnparseable, nil)
	}
	return FlashcardResult{Cards: Normalize(cards, fallback), Strategy: strategy}
}

// Answer responds to a question about doc.
func (p *Pipeline) Answer(ctx context.Context, doc models.Document, question string) (string, error) {
	return p.AnswerFromContent(ctx, doc, p.Content(ctx, doc), question)
}

// AnswerFromContent answers from already extracted text. A missing credential is reported as
// ErrAINotConfigured and any other model failure as ErrAIRequest.
func (p *Pipeline) AnswerFromContent(ctx context.Context, doc models.Document, content, question string) (string, error) {
	answer, err := p.complete(ctx, "answer", llm.Prompt{
		System: answerSystemPrompt,
		User:   answerUserPrompt(doc, content, question),
	})
	if err != nil {
		switch {
		case llm.IsMissingCredential(err):
			return "", appErrors.Wrap(err, appErrors.ErrAINotConfigured.Code, appErrors.ErrAINotConfigured.Status, appErrors.ErrAINotConfigured.Message)
		case errors.Is(err, llm.ErrEmptyResponse):
			return NoAnswer, nil
		default:
			p.logger.Warn("study aid answer failed", zap.String("resource_id", doc.ResourceID), zap.Error(err))
			return "", appErrors.Wrap(err, appErrors.ErrAIRequest.Code, appErrors.ErrAIRequest.Status, appErrors.ErrAIRequest.Message)
		}
	}
	if strings.TrimSpace(answer) == "" {
		return NoAnswer, nil
	}
	return answer, nil
}

func (p *Pipeline) complete(ctx context.Context, kind string, prompt llm.Prompt) (string, error) {
	if p.client == nil {
		return "", llm.ErrMissingCredential
	}
	prompt.Model = p.model
	prompt.Temperature = p.temp
	out, err := p.client.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = llm.ErrEmptyResponse
	}
	if p.recorder != nil {
		p.recorder.ObserveLLMRequest(kind, err)
	}
	return out, err
}

func (p *Pipeline) fallback(doc models.Document, cards []models.Flashcard, reason string, err error) FlashcardResult {
	fields := []zap.Field{zap.String("resource_id", doc.ResourceID), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	p.logger.Warn("flashcard generation fell back", fields...)
	if p.recorder != nil {
		p.recorder.RecordFlashcardFallback(reason)
	}
	return FlashcardResult{Cards: cards, Fallback: true, Reason: reason, Err: err}
}
