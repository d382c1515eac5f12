package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
)

// Phase is the lifecycle state of the latest query.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailed  Phase = "failed"
)

// FailureMessage is shown when a query cannot be served.
const FailureMessage = "Unable to load resources right now. Please try again."

// Fetcher runs one filtered, paginated query.
type Fetcher interface {
	Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error)

func (f FetcherFunc) Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	return f(ctx, filter)
}

// Snapshot is what a client renders.
type Snapshot struct {
	State      FacetState         `json:"state"`
	Phase      Phase              `json:"phase"`
	Seq        uint64             `json:"seq"`
	Results    []models.Resource  `json:"results"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// EngineConfig tunes an Engine.
type EngineConfig struct {
	PageSize     int
	Debounce     time.Duration
	FetchTimeout time.Duration
	ExamOnly     bool
	Logger       *zap.Logger
}

// Engine owns one facet selection and keeps its result set in step with it. Free-text
// changes are debounced; every other change queries immediately. Each query is tagged with
// a sequence number and only the newest one may update the snapshot.
type Engine struct {
	fetcher      Fetcher
	pageSize     int
	fetchTimeout time.Duration
	examOnly     bool
	debouncer    *Debouncer
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	snap    Snapshot
	latest  uint64
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// NewEngine builds an idle engine at the default facets.
func NewEngine(ctx context.Context, fetcher Fetcher, cfg EngineConfig) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Engine{
		fetcher:      fetcher,
		pageSize:     cfg.PageSize,
		fetchTimeout: cfg.FetchTimeout,
		examOnly:     cfg.ExamOnly,
		debouncer:    NewDebouncer(cfg.Debounce),
		logger:       cfg.Logger,
		ctx:          ctx,
		cancel:       cancel,
		snap: Snapshot{
			State:     DefaultFacets(),
			Phase:     PhaseIdle,
			Results:   []models.Resource{},
			UpdatedAt: time.Now().UTC(),
		},
		subs: make(map[int]chan Snapshot),
	}
}

// Dispatch applies action and schedules the resulting query.
func (e *Engine) Dispatch(action Action) Snapshot {
	e.mu.Lock()
	if e.closed {
		defer e.mu.Unlock()
		return e.copyLocked()
	}
	prev := e.snap.State
	e.snap.State = Reduce(prev, action)
	changed := e.snap.State != prev

	switch {
	case action.Kind == ActionSetQuery:
		e.snap.UpdatedAt = time.Now().UTC()
		e.publishLocked()
		e.mu.Unlock()
		if changed {
			e.debouncer.Trigger(e.Refresh)
		}
	case changed || action.Kind == ActionClear:
		e.mu.Unlock()
		e.debouncer.Stop()
		e.Refresh()
	default:
		e.mu.Unlock()
	}
	return e.Snapshot()
}

// Refresh issues a query for the current selection, superseding any in flight.
func (e *Engine) Refresh() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.latest++
	seq := e.latest
	filter := e.snap.State.Filter(e.pageSize)
	filter.ExamOnly = e.examOnly
	e.snap.Phase = PhaseLoading
	e.snap.Seq = seq
	e.snap.Error = ""
	e.snap.UpdatedAt = time.Now().UTC()
	e.publishLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(seq, filter)
}

func (e *Engine) run(seq uint64, filter models.ResourceFilter) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.fetchTimeout)
	defer cancel()
	results, pagination, err := e.fetcher.Search(ctx, filter)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || seq != e.latest {
		e.logger.Debug("discarding stale search response", zap.Uint64("seq", seq), zap.Uint64("latest", e.latest))
		return
	}
	if err != nil {
		e.logger.Warn("search query failed", zap.Uint64("seq", seq), zap.Error(err))
		e.snap.Phase = PhaseFailed
		e.snap.Results = []models.Resource{}
		e.snap.Pagination = models.NewPagination(filter.Page, filter.PageSize, 0)
		e.snap.Error = FailureMessage
	} else {
		if results == nil {
			results = []models.Resource{}
		}
		e.snap.Phase = PhaseSuccess
		e.snap.Results = results
		e.snap.Pagination = pagination
		e.snap.Error = ""
	}
	e.snap.UpdatedAt = time.Now().UTC()
	e.publishLocked()
}

// ApplyDownload bumps the displayed count of a listed resource ahead of the server.
// The next query result replaces it.
func (e *Engine) ApplyDownload(resourceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.snap.Results {
		if e.snap.Results[i].ID == resourceID {
			e.snap.Results[i].Downloads++
			e.publishLocked()
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyLocked()
}

// Subscribe streams snapshots. Slow readers only see the latest one.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.copyLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops pending work and ends every subscription.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.mu.Unlock()

	e.debouncer.Stop()
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.copyLocked()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (e *Engine) copyLocked() Snapshot {
	snap := e.snap
	snap.Results = make([]models.Resource, len(e.snap.Results))
	copy(snap.Results, e.snap.Results)
	if e.snap.Pagination != nil {
		p := *e.snap.Pagination
		snap.Pagination = &p
	}
	return snap
}
