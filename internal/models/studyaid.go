package models

import "time"

// Flashcard is one generated question/answer pair.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Document carries what the study aid knows about a file.
type Document struct {
	ResourceID  string `json:"resource_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	FileType    string `json:"file_type,omitempty"`
}

// AIRequest is the body of the single study-aid endpoint.
type AIRequest struct {
	Action          string `json:"action"`
	FileTitle       string `json:"fileTitle"`
	FileDescription string `json:"fileDescription"`
	Question        string `json:"question"`
	FileURL         string `json:"fileUrl"`
	FileType        string `json:"fileType"`
	ResourceID      string `json:"resourceId"`
}

// Study-aid actions.
const (
	AIActionGenerateFlashcards = "generate_flashcards"
	AIActionAskQuestion        = "ask_question"
)

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry of a study chat.
type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSessionView is the API representation of a chat session.
type ChatSessionView struct {
	ID        string     `json:"id"`
	Document  Document   `json:"document"`
	Turns     []ChatTurn `json:"turns"`
	Pending   bool       `json:"pending"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateChatRequest opens a chat about a resource.
type CreateChatRequest struct {
	ResourceID string `json:"resource_id" validate:"required,uuid"`
}

// AskRequest is a question posted to a chat.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// ExportFormat is the file format for flashcard exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// FlashcardExportRequest renders a flashcard batch to a downloadable file.
type FlashcardExportRequest struct {
	Title      string       `json:"title" validate:"required,max=200"`
	Format     ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Flashcards []Flashcard  `json:"flashcards" validate:"required,min=1,max=50,dive"`
}

// ExportResult points at a rendered export.
type ExportResult struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
