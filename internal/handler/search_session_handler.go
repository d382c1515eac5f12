package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/search"
	"github.com/noah-isme/studybase-api/internal/service"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/response"
)

type searchSessions interface {
	Create(actor *models.Actor, examOnly bool) *service.SearchSessionView
	Get(actor *models.Actor, id string) (*service.SearchSessionView, error)
	Dispatch(actor *models.Actor, id string, action search.Action) (*service.SearchSessionView, error)
	Subscribe(actor *models.Actor, id string) (<-chan search.Snapshot, func(), error)
	Close(actor *models.Actor, id string) error
}

// SearchSessionHandler exposes live, server-side browsing sessions.
type SearchSessionHandler struct {
	sessions searchSessions
}

// NewSearchSessionHandler constructs the handler.
func NewSearchSessionHandler(sessions searchSessions) *SearchSessionHandler {
	return &SearchSessionHandler{sessions: sessions}
}

type createSearchSessionRequest struct {
	ExamOnly bool `json:"exam_only"`
}

// Create godoc
// @Summary Open a live search session
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body createSearchSessionRequest false "Session options"
// @Success 201 {object} response.Envelope
// @Router /search/sessions [post]
func (h *SearchSessionHandler) Create(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req createSearchSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
			return
		}
	}
	response.Created(c, h.sessions.Create(actor, req.ExamOnly))
}

// Get godoc
// @Summary Latest snapshot of a search session
// @Tags Search
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /search/sessions/{id} [get]
func (h *SearchSessionHandler) Get(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	view, err := h.sessions.Get(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Dispatch godoc
// @Summary Apply a facet action
// @Tags Search
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body search.Action true "Action"
// @Success 200 {object} response.Envelope
// @Router /search/sessions/{id}/actions [post]
func (h *SearchSessionHandler) Dispatch(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var action search.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	view, err := h.sessions.Dispatch(actor, c.Param("id"), action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Stream godoc
// @Summary Stream snapshots as server-sent events
// @Tags Search
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Param access_token query string false "Access token for clients that cannot set headers"
// @Success 200 {string} string "event: snapshot"
// @Router /search/sessions/{id}/stream [get]
func (h *SearchSessionHandler) Stream(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	updates, cancel, err := h.sessions.Subscribe(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-updates:
			if !ok {
				c.SSEvent("closed", gin.H{"reason": "session ended"})
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}

// Close godoc
// @Summary Close a search session
// @Tags Search
// @Param id path string true "Session ID"
// @Success 204
// @Router /search/sessions/{id} [delete]
func (h *SearchSessionHandler) Close(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.sessions.Close(actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
