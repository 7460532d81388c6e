package ai

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/nhle/todo-agent/internal/model"
)

// apiCandidate is the loosely-typed shape a model may return for one todo.
// Tags and dates are decoded separately so a bad field drops only itself.
type apiCandidate struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Tags        json.RawMessage `json:"tags"`
	DueDate     string          `json:"dueDate"`
}

var dueDateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseCandidates decodes the text content of a completion into extracted
// todos. Code fences are stripped first. Empty content and valid JSON that
// is not an array yield zero candidates; anything else that is not JSON is a
// ParseError. Array elements that are not objects or lack a title are
// dropped, and unknown priorities become medium.
func ParseCandidates(content string) ([]model.ExtractedTodo, error) {
	cleaned := stripCodeFences(content)
	if cleaned == "" {
		return []model.ExtractedTodo{}, nil
	}

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ParseError{Raw: content, Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []model.ExtractedTodo{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &ParseError{Raw: content, Err: err}
	}

	out := make([]model.ExtractedTodo, 0, len(elems))
	for _, elem := range elems {
		if c, ok := decodeCandidate(elem); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func decodeCandidate(elem json.RawMessage) (model.ExtractedTodo, bool) {
	elem = bytes.TrimSpace(elem)
	if len(elem) == 0 || elem[0] != '{' {
		return model.ExtractedTodo{}, false
	}

	var c apiCandidate
	if err := json.Unmarshal(elem, &c); err != nil {
		return model.ExtractedTodo{}, false
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return model.ExtractedTodo{}, false
	}

	priority, ok := model.ParsePriority(c.Priority)
	if !ok {
		priority = model.PriorityMedium
	}

	return model.ExtractedTodo{
		Title:       title,
		Description: strings.TrimSpace(c.Description),
		Priority:    priority,
		Tags:        decodeTags(c.Tags),
		DueDate:     parseDueDate(c.DueDate),
	}, true
}

// decodeTags accepts an array of strings or a single string. Anything else
// yields no tags.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if json.Unmarshal(raw, &single) != nil {
			return nil
		}
		list = []string{single}
	}

	tags := make([]string, 0, len(list))
	for _, t := range list {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func parseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// stripCodeFences removes ``` and ```json markers that models often wrap
// JSON answers in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
