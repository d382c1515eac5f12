package studyaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/models"
)

func TestParseFlashcardsShapes(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		strategy string
		want     []models.Flashcard
	}{
		{
			name:     "bare array",
			raw:      `[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]`,
			strategy: "direct",
			want:     []models.Flashcard{{Question: "Q1", Answer: "A1"}, {Question: "Q2", Answer: "A2"}},
		},
		{
			name:     "flashcards wrapper",
			raw:      `{"flashcards":[{"question":"Q1","answer":"A1"}]}`,
			strategy: "direct",
			want:     []models.Flashcard{{Question: "Q1", Answer: "A1"}},
		},
		{
			name:     "cards wrapper with aliases",
			raw:      `{"cards":[{"q":"Q1","a":"A1"},{"Q":"Q2","A":"A2"}]}`,
			strategy: "direct",
			want:     []models.Flashcard{{Question: "Q1", Answer: "A1"}, {Question: "Q2", Answer: "A2"}},
		},
		{
			name:     "fenced block in prose",
			raw:      "Here you go:\n```json\n[{\"question\":\"Q1\",\"answer\":\"A1\"}]\n```",
			strategy: "fenced",
			want:     []models.Flashcard{{Question: "Q1", Answer: "A1"}},
		},
		{
			name:     "embedded array",
			raw:      `Sure! [{"question":"Q1","answer":"A1"}] Hope this helps.`,
			strategy: "embedded",
			want:     []models.Flashcard{{Question: "Q1", Answer: "A1"}},
		},
		{
			name:     "nested array needs balanced scan",
			raw:      `Cards: [{"question":"List primes","answer":[2,3,5]}] done`,
			strategy: "embedded",
			want:     []models.Flashcard{{Question: "List primes", Answer: "[2,3,5]"}},
		},
		{
			name:     "non string values and missing fields",
			raw:      `[{"question":42,"answer":true},{"answer":"only answer"},"junk"]`,
			strategy: "direct",
			want: []models.Flashcard{
				{Question: "42", Answer: "true"},
				{Question: "Question", Answer: "only answer"},
				{Question: "Question", Answer: "Answer"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cards, strategy, ok := ParseFlashcards(tc.raw, DefaultStrategies)
			require.True(t, ok)
			assert.Equal(t, tc.strategy, strategy)
			assert.Equal(t, tc.want, cards)
		})
	}
}

func TestParseFlashcardsFailures(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot help with that.",
		"[]",
		`{"flashcards":[]}`,
		`{"data":"none"}`,
		"[not json at all]",
	} {
		_, _, ok := ParseFlashcards(raw, DefaultStrategies)
		assert.False(t, ok, raw)
	}
}

func TestBalancedArraySkipsBracketsInStrings(t *testing.T) {
	span, ok := balancedArray(`prefix [{"q":"what is ] here?"}] suffix`)
	require.True(t, ok)
	assert.Equal(t, `[{"q":"what is ] here?"}]`, span)
}

func TestNormalizeAlwaysFive(t *testing.T) {
	fallback := FallbackFlashcards("Thermodynamics", "Heat and work")

	one := Normalize([]models.Flashcard{{Question: "Q1", Answer: "A1"}}, fallback)
	require.Len(t, one, FlashcardCount)
	assert.Equal(t, "Q1", one[0].Question)
	assert.Equal(t, fallback[:4], one[1:])

	seven := make([]models.Flashcard, 7)
	for i := range seven {
		seven[i] = models.Flashcard{Question: string(rune('A' + i)), Answer: "x"}
	}
	trimmed := Normalize(seven, fallback)
	require.Len(t, trimmed, FlashcardCount)
	assert.Equal(t, "E", trimmed[4].Question)

	overlap := Normalize([]models.Flashcard{fallback[0], fallback[2]}, fallback)
	require.Len(t, overlap, FlashcardCount)
	assert.Equal(t, []models.Flashcard{fallback[0], fallback[2], fallback[1], fallback[3], fallback[4]}, overlap)
}

func TestFallbackFlashcards(t *testing.T) {
	cards := FallbackFlashcards("Intro to Algorithms", "")
	require.Len(t, cards, FlashcardCount)
	assert.Equal(t, `What is the main topic of "Intro to Algorithms"?`, cards[0].Question)
	assert.Equal(t, "Review the document for details.", cards[0].Answer)
	assert.Equal(t, "This document covers the topic mentioned in the title.", cards[2].Answer)

	described := FallbackFlashcards("Intro to Algorithms", "Sorting and searching")
	assert.Equal(t, "Sorting and searching", described[0].Answer)
	assert.Equal(t, "Sorting and searching", described[2].Answer)
}
