package model

import "time"

// Category is a user-defined grouping for todos. Categories have no trash:
// deleting one is immediate and leaves todos pointing at a missing id.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`

	// UpdatedAt is zero for the seeded defaults and for categories written
	// by installations that do not track category edits.
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultCategories are seeded into a freshly created database.
var DefaultCategories = []Category{
	{ID: "1", Name: "Work", Color: "#6366F1", Icon: "folder"},
	{ID: "2", Name: "Life", Color: "#10B981", Icon: "folder"},
	{ID: "3", Name: "Study", Color: "#F59E0B", Icon: "folder"},
}

// CategoryForTags returns the id of the first category whose name exactly
// matches one of tags, checking tags in order. It returns nil when nothing
// matches.
func CategoryForTags(tags []string, categories []Category) *string {
	for _, tag := range tags {
		for _, c := range categories {
			if c.Name == tag {
				id := c.ID
				return &id
			}
		}
	}
	return nil
}
