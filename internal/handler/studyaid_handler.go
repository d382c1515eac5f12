package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/service"
	"github.com/noah-isme/studybase-api/internal/studyaid"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
	"github.com/noah-isme/studybase-api/pkg/response"
)

type studyAidService interface {
	Configured() bool
	Flashcards(ctx context.Context, actor *models.Actor, req models.AIRequest) (*studyaid.FlashcardResult, error)
	Answer(ctx context.Context, actor *models.Actor, req models.AIRequest) (string, error)
	CreateChat(ctx context.Context, actor *models.Actor, req models.CreateChatRequest) (*models.ChatSessionView, error)
	Ask(ctx context.Context, actor *models.Actor, chatID string, req models.AskRequest) (*models.ChatSessionView, error)
	GetChat(actor *models.Actor, chatID string) (*models.ChatSessionView, error)
	CloseChat(actor *models.Actor, chatID string) error
}

type exportService interface {
	ExportFlashcards(ctx context.Context, actor *models.Actor, req models.FlashcardExportRequest) (*models.ExportResult, error)
	Open(token string) (*service.ExportFile, error)
}

// StudyAidHandler serves flashcards, document Q&A, chats and flashcard exports.
type StudyAidHandler struct {
	aid     studyAidService
	exports exportService
}

// NewStudyAidHandler constructs the handler.
func NewStudyAidHandler(aid studyAidService, exports exportService) *StudyAidHandler {
	return &StudyAidHandler{aid: aid, exports: exports}
}

// aiError writes the bare {error} body used by the study-aid endpoint.
func aiError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	response.Bare(c, appErr.Status, gin.H{"error": appErr.Message})
}

// AI godoc
// @Summary Generate flashcards or answer a question about a document
// @Description Replies with {flashcards}, {answer} or {error}. Not wrapped in the response envelope.
// @Tags Study Aid
// @Accept json
// @Produce json
// @Param payload body models.AIRequest true "Action and document"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /ai [post]
func (h *StudyAidHandler) AI(c *gin.Context) {
	var req models.AIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Bare(c, http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !h.aid.Configured() {
		aiError(c, appErrors.ErrAINotConfigured)
		return
	}
	actor := actorFromContext(c)

	switch req.Action {
	case models.AIActionGenerateFlashcards:
		result, err := h.aid.Flashcards(c.Request.Context(), actor, req)
		if err != nil {
			aiError(c, err)
			return
		}
		response.Bare(c, http.StatusOK, gin.H{"flashcards": result.Cards})
	case models.AIActionAskQuestion:
		answer, err := h.aid.Answer(c.Request.Context(), actor, req)
		if err != nil {
			aiError(c, err)
			return
		}
		response.Bare(c, http.StatusOK, gin.H{"answer": answer})
	default:
		response.Bare(c, http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

// CreateChat godoc
// @Summary Open a chat about a resource
// @Tags Study Aid
// @Accept json
// @Produce json
// @Param payload body models.CreateChatRequest true "Resource"
// @Success 201 {object} response.Envelope
// @Router /study-aid/chats [post]
func (h *StudyAidHandler) CreateChat(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req models.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}
	view, err := h.aid.CreateChat(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Ask godoc
// @Summary Ask a question in a chat
// @Description A model failure still returns the conversation, with the failure as the last turn.
// @Tags Study Aid
// @Accept json
// @Produce json
// @Param id path string true "Chat ID"
// @Param payload body models.AskRequest true "Question"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /study-aid/chats/{id}/messages [post]
func (h *StudyAidHandler) Ask(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid question payload"))
		return
	}
	view, err := h.aid.Ask(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		if view == nil {
			response.Error(c, err)
			return
		}
		response.ErrorWithData(c, err, view)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GetChat godoc
// @Summary Chat turns
// @Tags Study Aid
// @Produce json
// @Param id path string true "Chat ID"
// @Success 200 {object} response.Envelope
// @Router /study-aid/chats/{id} [get]
func (h *StudyAidHandler) GetChat(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	view, err := h.aid.GetChat(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CloseChat godoc
// @Summary Discard a chat
// @Tags Study Aid
// @Param id path string true "Chat ID"
// @Success 204
// @Router /study-aid/chats/{id} [delete]
func (h *StudyAidHandler) CloseChat(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.aid.CloseChat(actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportFlashcards godoc
// @Summary Render flashcards to CSV or PDF
// @Tags Study Aid
// @Accept json
// @Produce json
// @Param payload body models.FlashcardExportRequest true "Flashcards"
// @Success 201 {object} response.Envelope
// @Router /study-aid/flashcards/export [post]
func (h *StudyAidHandler) ExportFlashcards(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req models.FlashcardExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.exports.ExportFlashcards(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// DownloadExport godoc
// @Summary Download a rendered export
// @Tags Study Aid
// @Produce octet-stream
// @Param token path string true "Signed export token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *StudyAidHandler) DownloadExport(c *gin.Context) {
	file, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()

	info, err := file.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), file.ContentType, file.File, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, file.Filename),
	})
}
