package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/search"
	"github.com/noah-isme/studybase-api/internal/service"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type searchSessionsMock struct {
	examOnly   bool
	dispatched []search.Action
	updates    chan search.Snapshot
	cancelled  bool
}

func (m *searchSessionsMock) Create(actor *models.Actor, examOnly bool) *service.SearchSessionView {
	m.examOnly = examOnly
	return &service.SearchSessionView{ID: "s1", ExamOnly: examOnly}
}

func (m *searchSessionsMock) Get(actor *models.Actor, id string) (*service.SearchSessionView, error) {
	if id != "s1" {
		return nil, appErrors.ErrSessionNotFound
	}
	return &service.SearchSessionView{ID: id}, nil
}

func (m *searchSessionsMock) Dispatch(actor *models.Actor, id string, action search.Action) (*service.SearchSessionView, error) {
	m.dispatched = append(m.dispatched, action)
	return &service.SearchSessionView{ID: id}, nil
}

func (m *searchSessionsMock) Subscribe(actor *models.Actor, id string) (<-chan search.Snapshot, func(), error) {
	if id != "s1" {
		return nil, nil, appErrors.ErrSessionNotFound
	}
	return m.updates, func() { m.cancelled = true }, nil
}

func (m *searchSessionsMock) Close(actor *models.Actor, id string) error {
	return nil
}

// closeNotifyingRecorder satisfies http.CloseNotifier, which gin's Stream requires.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestSearchSessionHandlerCreate(t *testing.T) {
	sessions := &searchSessionsMock{}
	handler := NewSearchSessionHandler(sessions)

	c, w := newGinContext(http.MethodPost, "/search/sessions", nil)
	withUser(c, "u1", models.RoleStudent)
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, sessions.examOnly)

	c, w = newGinContext(http.MethodPost, "/search/sessions", []byte(`{"exam_only":true}`))
	withUser(c, "u1", models.RoleStudent)
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, sessions.examOnly)

	c, w = newGinContext(http.MethodPost, "/search/sessions", nil)
	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchSessionHandlerDispatch(t *testing.T) {
	sessions := &searchSessionsMock{}
	handler := NewSearchSessionHandler(sessions)

	c, w := newGinContext(http.MethodPost, "/search/sessions/s1/actions", []byte(`{"kind":"set_level","value":"300"}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	withUser(c, "u1", models.RoleStudent)
	handler.Dispatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sessions.dispatched, 1)
	assert.Equal(t, search.Action{Kind: "set_level", Value: "300"}, sessions.dispatched[0])

	c, w = newGinContext(http.MethodGet, "/search/sessions/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	withUser(c, "u1", models.RoleStudent)
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchSessionHandlerStream(t *testing.T) {
	updates := make(chan search.Snapshot, 2)
	updates <- search.Snapshot{Phase: search.PhaseSuccess, Seq: 1, UpdatedAt: time.Now()}
	close(updates)
	sessions := &searchSessionsMock{updates: updates}
	handler := NewSearchSessionHandler(sessions)

	gin.SetMode(gin.TestMode)
	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/search/sessions/s1/stream", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	withUser(c, "u1", models.RoleStudent)

	handler.Stream(c)

	body := w.Body.String()
	assert.Contains(t, body, "event:snapshot")
	assert.Contains(t, body, `"seq":1`)
	assert.Contains(t, body, "event:closed")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, sessions.cancelled)
}

func TestSearchSessionHandlerStreamUnknownSession(t *testing.T) {
	handler := NewSearchSessionHandler(&searchSessionsMock{})

	c, w := newGinContext(http.MethodGet, "/search/sessions/x/stream", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	withUser(c, "u1", models.RoleStudent)
	handler.Stream(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
