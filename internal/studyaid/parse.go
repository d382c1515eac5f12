// Package studyaid turns course materials into flashcards and answers using a language model.
package studyaid

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/studybase-api/internal/models"
)

// FlashcardCount is the size of every generated batch.
const FlashcardCount = 5

// Strategy tries to read flashcards out of raw model text.
type Strategy struct {
	Name  string
	Parse func(raw string) ([]models.Flashcard, bool)
}

var (
	fencedArray   = regexp.MustCompile("```(?:json)?\\s*(\\[[\\s\\S]*?\\])\\s*```")
	embeddedArray = regexp.MustCompile(`(\[[\s\S]*?\])`)
)

// DefaultStrategies are tried in order; the first that yields cards wins.
var DefaultStrategies = []Strategy{
	{Name: "direct", Parse: parseDirect},
	{Name: "fenced", Parse: parseFenced},
	{Name: "embedded", Parse: parseEmbedded},
}

// ParseFlashcards runs the strategy chain. It returns the winning strategy name, or false
// when every strategy failed.
func ParseFlashcards(raw string, strategies []Strategy) ([]models.Flashcard, string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, "", false
	}
	for _, s := range strategies {
		if cards, ok := s.Parse(raw); ok {
			return cards, s.Name, true
		}
	}
	return nil, "", false
}

func parseDirect(raw string) ([]models.Flashcard, bool) {
	return decodeCards(strings.TrimSpace(raw))
}

func parseFenced(raw string) ([]models.Flashcard, bool) {
	m := fencedArray.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeCards(m[1])
}

func parseEmbedded(raw string) ([]models.Flashcard, bool) {
	if m := embeddedArray.FindStringSubmatch(raw); m != nil {
		if cards, ok := decodeCards(m[1]); ok {
			return cards, true
		}
	}
	// Lazy matching stops at the first ']' which breaks on nested arrays.
	if span, ok := balancedArray(raw); ok {
		return decodeCards(span)
	}
	return nil, false
}

// balancedArray returns the first bracket-balanced [...] span, skipping brackets in strings.
func balancedArray(raw string) (string, bool) {
	start := strings.IndexByte(raw, '[')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(raw); i++ {
			c := raw[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(raw[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// decodeCards accepts a bare array or an object wrapping one under "flashcards" or "cards".
func decodeCards(payload string) ([]models.Flashcard, bool) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, false
	}

	var items []interface{}
	switch v := parsed.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		for _, key := range []string{"flashcards", "cards"} {
			if arr, ok := v[key].([]interface{}); ok && len(arr) > 0 {
				items = arr
				break
			}
		}
	}
	if len(items) == 0 {
		return nil, false
	}

	cards := make([]models.Flashcard, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]interface{})
		cards = append(cards, models.Flashcard{
			Question: pick(fields, "Question", "question", "q", "Q"),
			Answer:   pick(fields, "Answer", "answer", "a", "A"),
		})
	}
	return cards, true
}

// pick returns the first truthy value among keys, stringified, or def.
func pick(fields map[string]interface{}, def string, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || !truthy(v) {
			continue
		}
		return stringify(v)
	}
	return def
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	default:
		return true
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Normalize returns exactly FlashcardCount cards: extra cards are dropped and short batches
// are topped up with fallback cards that are not already present.
func Normalize(cards []models.Flashcard, fallback []models.Flashcard) []models.Flashcard {
	if len(cards) > FlashcardCount {
		cards = cards[:FlashcardCount]
	}
	out := make([]models.Flashcard, 0, FlashcardCount)
	out = append(out, cards...)

	used := make(map[string]struct{}, len(out))
	for _, c := range out {
		used[c.Question] = struct{}{}
	}
	for _, c := range fallback {
		if len(out) == FlashcardCount {
			break
		}
		if _, dup := used[c.Question]; dup {
			continue
		}
		used[c.Question] = struct{}{}
		out = append(out, c)
	}
	return out
}
