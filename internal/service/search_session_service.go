package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/search"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

// SearchSessionConfig sizes live search sessions.
type SearchSessionConfig struct {
	PageSize         int
	ExamPrepPageSize int
	Debounce         time.Duration
	TTL              time.Duration
	MaxSessions      int
}

// SearchSessionView is the API representation of a live search.
type SearchSessionView struct {
	ID        string          `json:"id"`
	ExamOnly  bool            `json:"exam_only"`
	CreatedAt time.Time       `json:"created_at"`
	Snapshot  search.Snapshot `json:"snapshot"`
}

type searchSession struct {
	id        string
	ownerID   string
	examOnly  bool
	createdAt time.Time
	engine    *search.Engine
}

func (s *searchSession) view() *SearchSessionView {
	return &SearchSessionView{ID: s.id, ExamOnly: s.examOnly, CreatedAt: s.createdAt, Snapshot: s.engine.Snapshot()}
}

// SearchSessionService keeps one query engine per browsing view. Sessions expire TTL after
// creation and are closed when their owner signs out.
type SearchSessionService struct {
	fetcher   search.Fetcher
	sessions  *expirable.LRU[string, *searchSession]
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SearchSessionConfig

	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
}

// NewSearchSessionService constructs the service. events may be nil.
func NewSearchSessionService(fetcher search.Fetcher, events sessionEvents, logger *zap.Logger, cfg SearchSessionConfig) *SearchSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.ExamPrepPageSize <= 0 {
		cfg.ExamPrepPageSize = 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SearchSessionService{
		fetcher:   fetcher,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.sessions = expirable.NewLRU[string, *searchSession](cfg.MaxSessions, func(_ string, sess *searchSession) {
		go sess.engine.Close()
	}, cfg.TTL)
	if events != nil {
		s.stop = watchSignOuts(events, s.CloseUser)
	}
	return s
}

// Create opens a session and issues its first query.
func (s *SearchSessionService) Create(actor *models.Actor, examOnly bool) *SearchSessionView {
	pageSize := s.cfg.PageSize
	if examOnly {
		pageSize = s.cfg.ExamPrepPageSize
	}
	sess := &searchSession{
		id:        uuid.NewString(),
		ownerID:   actor.UserID,
		examOnly:  examOnly,
		createdAt: time.Now().UTC(),
		engine: search.NewEngine(s.ctx, s.fetcher, search.EngineConfig{
			PageSize: pageSize,
			Debounce: s.cfg.Debounce,
			ExamOnly: examOnly,
			Logger:   s.logger.With(zap.String("user_id", actor.UserID)),
		}),
	}
	s.sessions.Add(sess.id, sess)
	sess.engine.Refresh()
	return sess.view()
}

// Get returns the latest snapshot of a session.
func (s *SearchSessionService) Get(actor *models.Actor, id string) (*SearchSessionView, error) {
	sess, err := s.lookup(actor, id)
	if err != nil {
		return nil, err
	}
	return sess.view(), nil
}

// Dispatch applies a facet action to a session.
func (s *SearchSessionService) Dispatch(actor *models.Actor, id string, action search.Action) (*SearchSessionView, error) {
	if err := s.validator.Struct(action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search action")
	}
	sess, err := s.lookup(actor, id)
	if err != nil {
		return nil, err
	}
	sess.engine.Dispatch(action)
	return sess.view(), nil
}

// Subscribe streams snapshots of a session until the returned cancel func is called or the
// session closes.
func (s *SearchSessionService) Subscribe(actor *models.Actor, id string) (<-chan search.Snapshot, func(), error) {
	sess, err := s.lookup(actor, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.engine.Subscribe()
	return ch, cancel, nil
}

// ApplyDownload bumps a displayed download count in one session.
func (s *SearchSessionService) ApplyDownload(actor *models.Actor, id, resourceID string) bool {
	sess, err := s.lookup(actor, id)
	if err != nil {
		return false
	}
	return sess.engine.ApplyDownload(resourceID)
}

// Close ends a session.
func (s *SearchSessionService) Close(actor *models.Actor, id string) error {
	if _, err := s.lookup(actor, id); err != nil {
		return err
	}
	s.sessions.Remove(id)
	return nil
}

// CloseUser ends every session owned by userID.
func (s *SearchSessionService) CloseUser(userID string) {
	closed := 0
	for _, id := range s.sessions.Keys() {
		sess, ok := s.sessions.Peek(id)
		if ok && sess.ownerID == userID {
			s.sessions.Remove(id)
			closed++
		}
	}
	if closed > 0 {
		s.logger.Info("search sessions closed on sign-out", zap.String("user_id", userID), zap.Int("sessions", closed))
	}
}

// Shutdown closes every session and stops watching sign-outs.
func (s *SearchSessionService) Shutdown() {
	if s.stop != nil {
		s.stop()
	}
	s.sessions.Purge()
	s.cancel()
}

func (s *SearchSessionService) lookup(actor *models.Actor, id string) (*searchSession, error) {
	sess, ok := s.sessions.Get(id)
	if !ok || actor == nil || sess.ownerID != actor.UserID {
		return nil, appErrors.ErrSessionNotFound
	}
	return sess, nil
}
