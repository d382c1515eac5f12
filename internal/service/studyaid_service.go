package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/studyaid"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type studyAidPipeline interface {
	Configured() bool
	Content(ctx context.Context, doc models.Document) string
	FlashcardsFromContent(ctx context.Context, doc models.Document, content string) studyaid.FlashcardResult
	AnswerFromContent(ctx context.Context, doc models.Document, content, question string) (string, error)
}

type resourceReader interface {
	FindByID(ctx context.Context, id string) (*models.Resource, error)
}

// StudyAidConfig sizes chat session storage. FileURLPrefixes lists the object store locations
// an inline fileUrl may point at; any other URL is never fetched.
type StudyAidConfig struct {
	ChatTTL         time.Duration
	MaxChats        int
	FileURLPrefixes []string
}

// StudyAidService answers study-aid requests and keeps per-user chat sessions.
type StudyAidService struct {
	pipeline  studyAidPipeline
	resources resourceReader
	chats     *expirable.LRU[string, *studyaid.ChatSession]
	fileRoots []*url.URL
	validator *validator.Validate
	logger    *zap.Logger
	stop      func()
}

// NewStudyAidService constructs the service. resources and events may be nil.
func NewStudyAidService(pipeline studyAidPipeline, resources resourceReader, events sessionEvents, logger *zap.Logger, cfg StudyAidConfig) *StudyAidService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChatTTL <= 0 {
		cfg.ChatTTL = 2 * time.Hour
	}
	if cfg.MaxChats <= 0 {
		cfg.MaxChats = 1024
	}
	s := &StudyAidService{
		pipeline:  pipeline,
		resources: resources,
		chats:     expirable.NewLRU[string, *studyaid.ChatSession](cfg.MaxChats, nil, cfg.ChatTTL),
		validator: validator.New(),
		logger:    logger,
	}
	for _, prefix := range cfg.FileURLPrefixes {
		root, err := url.Parse(strings.TrimSpace(prefix))
		if err != nil || root.Host == "" {
			logger.Warn("ignoring study aid file url prefix", zap.String("prefix", prefix))
			continue
		}
		s.fileRoots = append(s.fileRoots, root)
	}
	if events != nil {
		s.stop = watchSignOuts(events, s.CloseUser)
	}
	return s
}

// Configured reports whether a model credential is present.
func (s *StudyAidService) Configured() bool {
	return s.pipeline.Configured()
}

// Flashcards generates a batch of flashcards. Only a missing model credential is an error;
// every other failure yields the fallback batch.
func (s *StudyAidService) Flashcards(ctx context.Context, actor *models.Actor, req models.AIRequest) (*studyaid.FlashcardResult, error) {
	if !s.pipeline.Configured() {
		return nil, appErrors.ErrAINotConfigured
	}
	doc, err := s.document(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	result := s.pipeline.FlashcardsFromContent(ctx, doc, s.pipeline.Content(ctx, doc))
	return &result, nil
}

// Answer responds to a single question about a document.
func (s *StudyAidService) Answer(ctx context.Context, actor *models.Actor, req models.AIRequest) (string, error) {
	if !s.pipeline.Configured() {
		return "", appErrors.ErrAINotConfigured
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "Question is required")
	}
	doc, err := s.document(ctx, actor, req)
	if err != nil {
		return "", err
	}
	return s.pipeline.AnswerFromContent(ctx, doc, s.pipeline.Content(ctx, doc), question)
}

// CreateChat opens a chat about a resource. The document text is extracted on the first question.
func (s *StudyAidService) CreateChat(ctx context.Context, actor *models.Actor, req models.CreateChatRequest) (*models.ChatSessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}
	doc, err := s.document(ctx, actor, models.AIRequest{ResourceID: req.ResourceID})
	if err != nil {
		return nil, err
	}
	chat := studyaid.NewChatSession(uuid.NewString(), actor.UserID, doc, s.pipeline, func(ctx context.Context) string {
		return s.pipeline.Content(ctx, doc)
	})
	s.chats.Add(chat.ID, chat)
	view := chat.View()
	return &view, nil
}

// Ask posts a question to a chat. On a model failure the returned view already carries the
// error message as the assistant turn.
func (s *StudyAidService) Ask(ctx context.Context, actor *models.Actor, chatID string, req models.AskRequest) (*models.ChatSessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question")
	}
	chat, err := s.lookupChat(actor, chatID)
	if err != nil {
		return nil, err
	}
	if _, err := chat.Ask(ctx, strings.TrimSpace(req.Question)); err != nil {
		if errors.Is(err, appErrors.ErrRequestInFlight) {
			return nil, err
		}
		view := chat.View()
		return &view, err
	}
	view := chat.View()
	return &view, nil
}

// GetChat returns a chat's turns.
func (s *StudyAidService) GetChat(actor *models.Actor, chatID string) (*models.ChatSessionView, error) {
	chat, err := s.lookupChat(actor, chatID)
	if err != nil {
		return nil, err
	}
	view := chat.View()
	return &view, nil
}

// CloseChat discards a chat.
func (s *StudyAidService) CloseChat(actor *models.Actor, chatID string) error {
	if _, err := s.lookupChat(actor, chatID); err != nil {
		return err
	}
	s.chats.Remove(chatID)
	return nil
}

// CloseUser discards every chat owned by userID.
func (s *StudyAidService) CloseUser(userID string) {
	for _, id := range s.chats.Keys() {
		if chat, ok := s.chats.Peek(id); ok && chat.OwnerID == userID {
			s.chats.Remove(id)
		}
	}
}

// Shutdown stops watching sign-outs and drops every chat.
func (s *StudyAidService) Shutdown() {
	if s.stop != nil {
		s.stop()
	}
	s.chats.Purge()
}

func (s *StudyAidService) lookupChat(actor *models.Actor, chatID string) (*studyaid.ChatSession, error) {
	chat, ok := s.chats.Get(chatID)
	if !ok || actor == nil || chat.OwnerID != actor.UserID {
		return nil, appErrors.ErrSessionNotFound
	}
	return chat, nil
}

// document resolves the file a request is about. A resource id wins over inline file fields.
func (s *StudyAidService) document(ctx context.Context, actor *models.Actor, req models.AIRequest) (models.Document, error) {
	if req.ResourceID == "" || s.resources == nil {
		fileURL := strings.TrimSpace(req.FileURL)
		if fileURL != "" && !s.storedFileURL(fileURL) {
			s.logger.Warn("study aid file url outside object store, skipping extraction", zap.String("file_url", fileURL))
			fileURL = ""
		}
		return models.Document{
			Title:       strings.TrimSpace(req.FileTitle),
			Description: strings.TrimSpace(req.FileDescription),
			FileURL:     fileURL,
			FileType:    strings.TrimSpace(req.FileType),
		}, nil
	}

	notFound := appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	if _, err := uuid.Parse(req.ResourceID); err != nil {
		return models.Document{}, notFound
	}
	res, err := s.resources.FindByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, notFound
		}
		return models.Document{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if res.Status != models.ResourceStatusApproved && !canManage(actor, res) {
		return models.Document{}, notFound
	}
	return models.Document{
		ResourceID:  res.ID,
		Title:       res.Title,
		Description: res.Description,
		FileURL:     res.FileURL,
		FileType:    res.FileType,
	}, nil
}

// storedFileURL reports whether raw points inside one of the configured object store roots.
func (s *StudyAidService) storedFileURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	p := path.Clean("/" + u.Path)
	for _, root := range s.fileRoots {
		if !strings.EqualFold(u.Scheme, root.Scheme) || !strings.EqualFold(u.Host, root.Host) {
			continue
		}
		rootPath := strings.TrimRight(root.Path, "/") + "/"
		if strings.HasPrefix(p+"/", rootPath) {
			return true
		}
	}
	return false
}
