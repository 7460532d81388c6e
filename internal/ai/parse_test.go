package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/model"
)

func TestParseCandidates(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "empty", content: "", want: []string{}},
		{name: "whitespace", content: "  \n ", want: []string{}},
		{name: "empty array", content: "[]", want: []string{}},
		{name: "object not array", content: `{"title":"x"}`, want: []string{}},
		{name: "null", content: "null", want: []string{}},
		{name: "string", content: `"nothing here"`, want: []string{}},
		{name: "fenced json", content: "```json\n[{\"title\":\"A\"}]\n```", want: []string{"A"}},
		{name: "bare fence", content: "```\n[{\"title\":\"B\"}]\n```", want: []string{"B"}},
		{
			name:    "drops bad elements",
			content: `[{"title":"keep"}, 42, "str", null, {"title":"  "}, {"description":"no title"}, {"title":7}]`,
			want:    []string{"keep"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandidates(tt.content)
			require.NoError(t, err)
			require.NotNil(t, got)
			titles := make([]string, len(got))
			for i, c := range got {
				titles[i] = c.Title
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestParseCandidatesMalformed(t *testing.T) {
	for _, content := range []string{"Sure! Here are your todos", `[{"title":"x"`, "```json\n[oops]\n```"} {
		_, err := ParseCandidates(content)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, content)
		assert.Equal(t, content, perr.Raw)
	}
}

func TestParseCandidatesCoercesFields(t *testing.T) {
	got, err := ParseCandidates(`[
		{"title":" Ship release ","description":" notes ","priority":"HIGH","tags":["Work"," ","release"],"dueDate":"2026-02-03"},
		{"title":"Water plants","priority":"urgent","tags":"Life","dueDate":"next week"},
		{"title":"Call bank","tags":{"bad":true},"dueDate":"2026-02-03T10:00:00+02:00"}
	]`)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Ship release", got[0].Title)
	assert.Equal(t, "notes", got[0].Description)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, []string{"Work", "release"}, got[0].Tags)
	require.NotNil(t, got[0].DueDate)
	assert.True(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC).Equal(*got[0].DueDate))

	assert.Equal(t, model.PriorityMedium, got[1].Priority)
	assert.Equal(t, []string{"Life"}, got[1].Tags)
	assert.Nil(t, got[1].DueDate)

	assert.Nil(t, got[2].Tags)
	require.NotNil(t, got[2].DueDate)
	assert.True(t, time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC).Equal(*got[2].DueDate))
}
