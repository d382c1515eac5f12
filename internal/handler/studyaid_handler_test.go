package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/internal/service"
	"github.com/noah-isme/studybase-api/internal/studyaid"
	appErrors "github.com/noah-isme/studybase-api/pkg/errors"
)

type studyAidServiceMock struct {
	configured bool
	answerErr  error
	askErr     error
	lastReq    models.AIRequest
	calls      int
}

func (m *studyAidServiceMock) Configured() bool { return m.configured }

func (m *studyAidServiceMock) Flashcards(ctx context.Context, actor *models.Actor, req models.AIRequest) (*studyaid.FlashcardResult, error) {
	m.calls++
	m.lastReq = req
	return &studyaid.FlashcardResult{Cards: []models.Flashcard{{Question: "What is a cell?", Answer: "The basic unit of life."}}}, nil
}

func (m *studyAidServiceMock) Answer(ctx context.Context, actor *models.Actor, req models.AIRequest) (string, error) {
	m.calls++
	m.lastReq = req
	if m.answerErr != nil {
		return "", m.answerErr
	}
	return "Mitochondria.", nil
}

func (m *studyAidServiceMock) CreateChat(ctx context.Context, actor *models.Actor, req models.CreateChatRequest) (*models.ChatSessionView, error) {
	return &models.ChatSessionView{ID: "chat-1", Document: models.Document{ResourceID: req.ResourceID}}, nil
}

func (m *studyAidServiceMock) Ask(ctx context.Context, actor *models.Actor, chatID string, req models.AskRequest) (*models.ChatSessionView, error) {
	view := &models.ChatSessionView{ID: chatID, Turns: []models.ChatTurn{
		{Role: models.ChatRoleUser, Content: req.Question},
		{Role: models.ChatRoleAssistant, Content: "reply"},
	}}
	if m.askErr != nil {
		if appErrors.FromError(m.askErr).Code == appErrors.ErrRequestInFlight.Code {
			return nil, m.askErr
		}
		view.Turns[1].Content = appErrors.ErrAIRequest.Message
		return view, m.askErr
	}
	return view, nil
}

func (m *studyAidServiceMock) GetChat(actor *models.Actor, chatID string) (*models.ChatSessionView, error) {
	return nil, appErrors.ErrSessionNotFound
}

func (m *studyAidServiceMock) CloseChat(actor *models.Actor, chatID string) error {
	return nil
}

type exportServiceMock struct {
	path string
}

func (m *exportServiceMock) ExportFlashcards(ctx context.Context, actor *models.Actor, req models.FlashcardExportRequest) (*models.ExportResult, error) {
	return &models.ExportResult{Filename: "cards.csv", URL: "/api/v1/exports/token"}, nil
}

func (m *exportServiceMock) Open(token string) (*service.ExportFile, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export link is invalid or expired")
	}
	file, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	return &service.ExportFile{File: file, Filename: "cards.csv", ContentType: "text/csv; charset=utf-8"}, nil
}

func decodeBare(t *testing.T, body []byte) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAIHandlerFlashcards(t *testing.T) {
	svc := &studyAidServiceMock{configured: true}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/ai", []byte(`{"action":"generate_flashcards","fileTitle":"Cell Biology","fileUrl":"https://files/x.pdf","fileType":"PDF"}`))
	handler.AI(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBare(t, w.Body.Bytes())
	assert.Contains(t, body, "flashcards")
	assert.NotContains(t, body, "data")
	var cards []models.Flashcard
	require.NoError(t, json.Unmarshal(body["flashcards"], &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Cell Biology", svc.lastReq.FileTitle)
	assert.Equal(t, "PDF", svc.lastReq.FileType)
}

func TestAIHandlerAnswer(t *testing.T) {
	svc := &studyAidServiceMock{configured: true}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/ai", []byte(`{"action":"ask_question","fileTitle":"Cell Biology","question":"Powerhouse?"}`))
	handler.AI(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Mitochondria."}`, w.Body.String())

	svc.answerErr = appErrors.ErrAIRequest
	c, w = newGinContext(http.MethodPost, "/ai", []byte(`{"action":"ask_question","question":"Powerhouse?"}`))
	handler.AI(c)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"AI request failed. Please try again."}`, w.Body.String())
}

func TestAIHandlerRejectsUnknownAction(t *testing.T) {
	svc := &studyAidServiceMock{configured: true}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/ai", []byte(`{"action":"summarise"}`))
	handler.AI(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid action"}`, w.Body.String())
	assert.Zero(t, svc.calls)
}

func TestAIHandlerNotConfigured(t *testing.T) {
	svc := &studyAidServiceMock{}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	for _, action := range []string{"generate_flashcards", "ask_question", "summarise"} {
		c, w := newGinContext(http.MethodPost, "/ai", []byte(`{"action":"`+action+`"}`))
		handler.AI(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code, action)
		assert.JSONEq(t, `{"error":"AI service not configured. Please add OPENAI_API_KEY to your environment variables."}`, w.Body.String())
	}
	assert.Zero(t, svc.calls)
}

func TestAIHandlerMalformedBody(t *testing.T) {
	handler := NewStudyAidHandler(&studyAidServiceMock{configured: true}, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/ai", []byte(`{"action":`))
	handler.AI(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}

func TestStudyAidHandlerChats(t *testing.T) {
	svc := &studyAidServiceMock{configured: true}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/study-aid/chats", []byte(`{"resource_id":"5b0c2c63-6f6f-4a36-9c43-111111111111"}`))
	handler.CreateChat(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/study-aid/chats", []byte(`{"resource_id":"5b0c2c63-6f6f-4a36-9c43-111111111111"}`))
	withUser(c, "u1", models.RoleStudent)
	handler.CreateChat(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodGet, "/study-aid/chats/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	withUser(c, "u1", models.RoleStudent)
	handler.GetChat(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, appErrors.ErrSessionNotFound.Code, decodeEnvelope(t, w).Error.Code)
}

func TestStudyAidHandlerAskFailureKeepsConversation(t *testing.T) {
	svc := &studyAidServiceMock{configured: true, askErr: appErrors.ErrAIRequest}
	handler := NewStudyAidHandler(svc, &exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/study-aid/chats/chat-1/messages", []byte(`{"question":"Why?"}`))
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}
	withUser(c, "u1", models.RoleStudent)
	handler.Ask(c)

	require.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrAIRequest.Code, env.Error.Code)
	var view models.ChatSessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Turns, 2)
	assert.Equal(t, appErrors.ErrAIRequest.Message, view.Turns[1].Content)

	svc.askErr = appErrors.ErrRequestInFlight
	c, w = newGinContext(http.MethodPost, "/study-aid/chats/chat-1/messages", []byte(`{"question":"Again?"}`))
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}
	withUser(c, "u1", models.RoleStudent)
	handler.Ask(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, decodeEnvelope(t, w).Data)
}

func TestStudyAidHandlerExportDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	require.NoError(t, os.WriteFile(path, []byte("No.,Question,Answer\n1,Q,A\n"), 0o600))
	handler := NewStudyAidHandler(&studyAidServiceMock{}, &exportServiceMock{path: path})

	c, w := newGinContext(http.MethodPost, "/study-aid/flashcards/export", []byte(`{"title":"Cells","format":"csv","flashcards":[{"question":"Q","answer":"A"}]}`))
	withUser(c, "u1", models.RoleStudent)
	handler.ExportFlashcards(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodGet, "/exports/good", nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	handler.DownloadExport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cards.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "No.,Question,Answer\n1,Q,A\n", w.Body.String())

	c, w = newGinContext(http.MethodGet, "/exports/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.DownloadExport(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
