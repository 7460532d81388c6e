package model

import "time"

// SyncSnapshot is the document exchanged with object storage. Field names
// follow the on-bucket format shared with other installations.
type SyncSnapshot struct {
	Todos      []Todo     `json:"todos"`
	Categories []Category `json:"categories"`
	Version    int64      `json:"version"`
	WrittenAt  time.Time  `json:"timestamp"`
	OriginID   string     `json:"deviceId"`
}

// LocalData is the part of the entity store that takes part in sync.
type LocalData struct {
	Todos      []Todo
	Categories []Category

	// ReadAt is when the store produced this data. It is zero for data that
	// did not come from the local store.
	ReadAt time.Time
}

// LatestUpdate returns the greatest UpdatedAt across todos in milliseconds
// since the epoch, or 0 when there are none.
func (d LocalData) LatestUpdate() int64 {
	var latest int64
	for _, t := range d.Todos {
		if ms := t.UpdatedAt.UnixMilli(); ms > latest {
			latest = ms
		}
	}
	return latest
}
