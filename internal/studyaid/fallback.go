package studyaid

import (
	"fmt"

	"github.com/noah-isme/studybase-api/internal/models"
)

// FallbackFlashcards is the deterministic batch used when generation yields nothing usable.
func FallbackFlashcards(title, description string) []models.Flashcard {
	summary := description
	if summary == "" {
		summary = "This document covers the topic mentioned in the title."
	}
	mainTopic := description
	if mainTopic == "" {
		mainTopic = "Review the document for details."
	}
	return []models.Flashcard{
		{Question: fmt.Sprintf("What is the main topic of \"%s\"?", title), Answer: mainTopic},
		{Question: fmt.Sprintf("What are key concepts in \"%s\"?", title), Answer: "Review the document to identify key concepts."},
		{Question: fmt.Sprintf("How would you summarize \"%s\"?", title), Answer: summary},
		{Question: fmt.Sprintf("What should you remember from \"%s\"?", title), Answer: "Focus on main points, definitions, and important details."},
		{Question: fmt.Sprintf("What questions might be asked about \"%s\"?", title), Answer: "Questions typically cover main concepts and applications."},
	}
}
