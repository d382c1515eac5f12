package studyaid

import (
	"fmt"
	"strings"

	"github.com/noah-isme/studybase-api/internal/models"
	"github.com/noah-isme/studybase-api/pkg/extract"
)

const flashcardSystemPrompt = "You are a helpful study assistant. Generate exactly 5 study flashcards based on the provided document content. Each flashcard should have a clear question and a detailed answer. Make the questions test important concepts from the document."

const answerSystemPrompt = "You are a helpful study assistant. Answer questions about academic documents clearly and accurately, using only the provided content. If the content does not contain the answer, say so explicitly and politely."

// NoAnswer replaces an empty model reply.
const NoAnswer = "I apologize, but I could not generate a response. Please try again."

func documentHeader(doc models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document Title: \"%s\"\n", doc.Title)
	if doc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", doc.Description)
	}
	b.WriteString("\n")
	return b.String()
}

func flashcardUserPrompt(doc models.Document, content string, maxChars int) string {
	var b strings.Builder
	b.WriteString(documentHeader(doc))
	if content != "" {
		b.WriteString("Document Content:\n")
		b.WriteString(extract.Truncate(content, maxChars))
	} else {
		b.WriteString("No file content available. Use the title and description to create general study flashcards.")
	}
	b.WriteString("\n\nGenerate exactly 5 study flashcards based on this document. Each flashcard should test important concepts.\n\n")
	b.WriteString("Return your response as a valid JSON array in this exact format:\n")
	b.WriteString(`[{"question": "Question text here", "answer": "Detailed answer text here"}]`)
	b.WriteString("\n\nMake sure each question tests a different important concept from the document. Return ONLY the JSON array, no markdown code blocks, no explanations.")
	return b.String()
}

func answerUserPrompt(doc models.Document, content, question string) string {
	var b strings.Builder
	b.WriteString(documentHeader(doc))
	if content != "" {
		b.WriteString("Document Content:\n")
		b.WriteString(content)
	} else {
		b.WriteString("Limited file content available. Answer based on the title and description provided.")
	}
	fmt.Fprintf(&b, "\n\nUser Question: \"%s\"\n\n", question)
	b.WriteString("Answer only from the document content above. If the content is not sufficient to answer, say so explicitly and explain what information would be needed.")
	return b.String()
}
