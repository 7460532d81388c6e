package sync

import (
	"sort"

	"github.com/nhle/todo-agent/internal/model"
)

// Merge unions two todo sets by id. A todo present on both sides keeps the
// copy with the later UpdatedAt; on a tie the local copy wins. The result is
// ordered by sort order, newest first on ties, then by id, so it does not
// depend on the order of the inputs.
func Merge(local, remote []model.Todo) []model.Todo {
	byID := make(map[string]model.Todo, len(local)+len(remote))
	for _, t := range local {
		byID[t.ID] = t
	}
	for _, r := range remote {
		l, ok := byID[r.ID]
		if !ok || r.UpdatedAt.After(l.UpdatedAt) {
			byID[r.ID] = r
		}
	}

	merged := make([]model.Todo, 0, len(byID))
	for _, t := range byID {
		merged = append(merged, t)
	}
	sortTodos(merged)
	return merged
}

// MergeCategories unions two category sets by id. A category present on both
// sides keeps the copy with the later UpdatedAt. When the timestamps are
// equal, usually because neither side tracks category edits, the remote copy
// wins only if remoteNewer is set. Local categories come first, in their
// order, followed by remote-only ones.
func MergeCategories(local, remote []model.Category, remoteNewer bool) []model.Category {
	remoteByID := make(map[string]model.Category, len(remote))
	for _, c := range remote {
		remoteByID[c.ID] = c
	}

	seen := make(map[string]bool, len(local))
	merged := make([]model.Category, 0, len(local)+len(remote))
	for _, l := range local {
		seen[l.ID] = true
		r, ok := remoteByID[l.ID]
		switch {
		case !ok:
			merged = append(merged, l)
		case r.UpdatedAt.After(l.UpdatedAt):
			merged = append(merged, r)
		case r.UpdatedAt.Equal(l.UpdatedAt) && remoteNewer:
			merged = append(merged, r)
		default:
			merged = append(merged, l)
		}
	}
	for _, c := range remote {
		if !seen[c.ID] {
			seen[c.ID] = true
			merged = append(merged, c)
		}
	}
	return merged
}

// changedTodos returns the todos of merged that are missing from local or
// differ from the local copy, i.e. those the remote side contributed.
func changedTodos(local, merged []model.Todo) []model.Todo {
	byID := make(map[string]model.Todo, len(local))
	for _, t := range local {
		byID[t.ID] = t
	}
	var changed []model.Todo
	for _, m := range merged {
		l, ok := byID[m.ID]
		if !ok || !l.UpdatedAt.Equal(m.UpdatedAt) {
			changed = append(changed, m)
		}
	}
	return changed
}

// changedCategories is changedTodos for categories.
func changedCategories(local, merged []model.Category) []model.Category {
	byID := make(map[string]model.Category, len(local))
	for _, c := range local {
		byID[c.ID] = c
	}
	var changed []model.Category
	for _, m := range merged {
		l, ok := byID[m.ID]
		if !ok || l.Name != m.Name || l.Color != m.Color || l.Icon != m.Icon || !l.UpdatedAt.Equal(m.UpdatedAt) {
			changed = append(changed, m)
		}
	}
	return changed
}

func sortTodos(todos []model.Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
