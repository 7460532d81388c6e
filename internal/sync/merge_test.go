package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/todo-agent/internal/model"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func todoAt(id, title string, order int, updated time.Duration) model.Todo {
	return model.Todo{
		ID:        id,
		Title:     title,
		Priority:  model.PriorityMedium,
		Tags:      []string{},
		SortOrder: order,
		CreatedAt: base,
		UpdatedAt: base.Add(updated),
	}
}

func TestMergeLastWriterWins(t *testing.T) {
	tests := []struct {
		name      string
		local     model.Todo
		remote    model.Todo
		wantTitle string
	}{
		{
			name:      "remote newer",
			local:     todoAt("x", "local", 0, time.Minute),
			remote:    todoAt("x", "remote", 0, 2*time.Minute),
			wantTitle: "remote",
		},
		{
			name:      "local newer",
			local:     todoAt("x", "local", 0, 3*time.Minute),
			remote:    todoAt("x", "remote", 0, 2*time.Minute),
			wantTitle: "local",
		},
		{
			name:      "tie keeps local",
			local:     todoAt("x", "local", 0, time.Minute),
			remote:    todoAt("x", "remote", 0, time.Minute),
			wantTitle: "local",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge([]model.Todo{tt.local}, []model.Todo{tt.remote})
			if assert.Len(t, got, 1) {
				assert.Equal(t, tt.wantTitle, got[0].Title)
			}
		})
	}
}

func TestMergeTrashStateFollowsNewestCopy(t *testing.T) {
	deleted := todoAt("x", "t", 0, 5*time.Minute)
	at := base.Add(5 * time.Minute)
	deleted.DeletedAt = &at

	got := Merge([]model.Todo{todoAt("x", "t", 0, time.Minute)}, []model.Todo{deleted})
	if assert.Len(t, got, 1) {
		assert.True(t, got[0].IsTrashed())
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	x := []model.Todo{
		todoAt("a", "a", 0, 0),
		todoAt("b", "b", 1, time.Minute),
		todoAt("c", "c", 2, 2*time.Minute),
	}
	assert.Equal(t, x, Merge(x, x))
	assert.Equal(t, x, Merge(x, nil))
}

func TestMergeIsCommutativeForDisjointSets(t *testing.T) {
	a := []model.Todo{todoAt("a1", "a1", 0, 0), todoAt("a2", "a2", 1, 0)}
	b := []model.Todo{todoAt("b1", "b1", 0, time.Hour), todoAt("b2", "b2", 5, 0)}

	ab := Merge(a, b)
	assert.Equal(t, ab, Merge(b, a))
	assert.Len(t, ab, 4)

	ids := make([]string, len(ab))
	for i, todo := range ab {
		ids[i] = todo.ID
	}
	assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, ids)
}

func TestMergeCategories(t *testing.T) {
	edited := base.Add(time.Hour)

	tests := []struct {
		name        string
		local       []model.Category
		remote      []model.Category
		remoteNewer bool
		want        []model.Category
	}{
		{
			name:   "union keeps local order then remote-only",
			local:  []model.Category{{ID: "1", Name: "Work"}, {ID: "2", Name: "Life"}},
			remote: []model.Category{{ID: "7", Name: "Music"}},
			want:   []model.Category{{ID: "1", Name: "Work"}, {ID: "2", Name: "Life"}, {ID: "7", Name: "Music"}},
		},
		{
			name:   "later remote edit wins",
			local:  []model.Category{{ID: "1", Name: "Work"}},
			remote: []model.Category{{ID: "1", Name: "Job", UpdatedAt: edited}},
			want:   []model.Category{{ID: "1", Name: "Job", UpdatedAt: edited}},
		},
		{
			name:        "later local edit wins even against a newer snapshot",
			local:       []model.Category{{ID: "1", Name: "Job", UpdatedAt: edited}},
			remote:      []model.Category{{ID: "1", Name: "Work"}},
			remoteNewer: true,
			want:        []model.Category{{ID: "1", Name: "Job", UpdatedAt: edited}},
		},
		{
			name:        "tie goes to the newer snapshot",
			local:       []model.Category{{ID: "2", Name: "Life"}},
			remote:      []model.Category{{ID: "2", Name: "Home"}},
			remoteNewer: true,
			want:        []model.Category{{ID: "2", Name: "Home"}},
		},
		{
			name:   "tie stays local against an older snapshot",
			local:  []model.Category{{ID: "2", Name: "Life"}},
			remote: []model.Category{{ID: "2", Name: "Home"}},
			want:   []model.Category{{ID: "2", Name: "Life"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeCategories(tt.local, tt.remote, tt.remoteNewer))
		})
	}
}

func TestChangedTodosOnlyReportsRemoteContributions(t *testing.T) {
	local := []model.Todo{todoAt("a", "mine", 0, time.Hour), todoAt("b", "shared", 1, 0)}
	remote := []model.Todo{todoAt("a", "older", 0, 0), todoAt("b", "edited there", 1, time.Minute), todoAt("c", "new", 2, 0)}

	changed := changedTodos(local, Merge(local, remote))
	ids := make([]string, len(changed))
	for i, todo := range changed {
		ids[i] = todo.ID
	}
	assert.Equal(t, []string{"b", "c"}, ids)
	assert.Empty(t, changedTodos(local, Merge(local, local)))
}

func TestChangedCategories(t *testing.T) {
	local := []model.Category{{ID: "1", Name: "Work"}, {ID: "2", Name: "Life"}}
	merged := []model.Category{{ID: "1", Name: "Work"}, {ID: "2", Name: "Home"}, {ID: "9", Name: "New"}}

	assert.Equal(t, []model.Category{{ID: "2", Name: "Home"}, {ID: "9", Name: "New"}}, changedCategories(local, merged))
}
