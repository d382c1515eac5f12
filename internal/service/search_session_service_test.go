package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/search"
	"github.com/noah-isme/studybase-api/internal/session"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type recordingFetcher struct {
	mu      sync.Mutex
	filters []models.ResourceFilter
}

func (f *recordingFetcher) Search(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return []models.Resource{{ID: resA, Downloads: 3}}, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}

func (f *recordingFetcher) last() models.ResourceFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters[len(f.filters)-1]
}

func newTestSearchSessions(t *testing.T, hub *session.Hub) (*SearchSessionService, *recordingFetcher) {
	t.Helper()
	fetcher := &recordingFetcher{}
	var events sessionEvents
	if hub != nil {
		events = hub
	}
	svc := NewSearchSessionService(fetcher, events, zap.NewNop(), SearchSessionConfig{PageSize: 12, ExamPrepPageSize: 10, TTL: time.Minute})
	t.Cleanup(svc.Shutdown)
	return svc, fetcher
}

func waitForPhase(t *testing.T, svc *SearchSessionService, actor *models.Actor, id string, phase search.Phase) *SearchSessionView {
	t.Helper()
	var view *SearchSessionView
	require.Eventually(t, func() bool {
		v, err := svc.Get(actor, id)
		if err != nil {
			return false
		}
		view = v
		return v.Snapshot.Phase == phase
	}, time.Second, 5*time.Millisecond)
	return view
}

func TestSearchSessionCreateRunsInitialQuery(t *testing.T) {
	svc, fetcher := newTestSearchSessions(t, nil)

	created := svc.Create(actorStudent, true)
	assert.True(t, created.ExamOnly)

	view := waitForPhase(t, svc, actorStudent, created.ID, search.PhaseSuccess)
	require.Len(t, view.Snapshot.Results, 1)
	assert.True(t, fetcher.last().ExamOnly)
	assert.Equal(t, 10, fetcher.last().PageSize)
}

func TestSearchSessionDispatchAppliesFacet(t *testing.T) {
	svc, fetcher := newTestSearchSessions(t, nil)
	created := svc.Create(actorStudent, false)
	waitForPhase(t, svc, actorStudent, created.ID, search.PhaseSuccess)

	view, err := svc.Dispatch(actorStudent, created.ID, search.Action{Kind: search.ActionSetLevel, Value: "300"})
	require.NoError(t, err)
	assert.Equal(t, "300", view.Snapshot.State.Level)

	waitForPhase(t, svc, actorStudent, created.ID, search.PhaseSuccess)
	assert.Equal(t, "300", fetcher.last().Level)

	_, err = svc.Dispatch(actorStudent, created.ID, search.Action{Kind: "sort"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSearchSessionIsolatedPerOwner(t *testing.T) {
	svc, _ := newTestSearchSessions(t, nil)
	created := svc.Create(actorStudent, false)

	_, err := svc.Get(actorLecturer, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
	_, err = svc.Get(nil, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(actorLecturer, created.ID), appErrors.ErrSessionNotFound)

	require.NoError(t, svc.Close(actorStudent, created.ID))
	_, err = svc.Get(actorStudent, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}

func TestSearchSessionApplyDownload(t *testing.T) {
	svc, _ := newTestSearchSessions(t, nil)
	created := svc.Create(actorStudent, false)
	waitForPhase(t, svc, actorStudent, created.ID, search.PhaseSuccess)

	assert.True(t, svc.ApplyDownload(actorStudent, created.ID, resA))
	assert.False(t, svc.ApplyDownload(actorStudent, created.ID, resB))
	assert.False(t, svc.ApplyDownload(actorLecturer, created.ID, resA))

	view, err := svc.Get(actorStudent, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Snapshot.Results[0].Downloads)
}

func TestSearchSessionsClosedOnSignOut(t *testing.T) {
	hub := session.NewHub(zap.NewNop())
	defer hub.Close()
	svc, _ := newTestSearchSessions(t, hub)

	mine := svc.Create(actorStudent, false)
	theirs := svc.Create(actorLecturer, false)
	updates, cancel, err := svc.Subscribe(actorStudent, mine.ID)
	require.NoError(t, err)
	defer cancel()

	hub.SignedOut(actorStudent.UserID)

	require.Eventually(t, func() bool {
		_, err := svc.Get(actorStudent, mine.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
	_, err = svc.Get(actorLecturer, theirs.ID)
	assert.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "subscription ends when the session closes")
}
