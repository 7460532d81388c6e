package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/objstore"
)

// DefaultObjectKey is where the snapshot lives unless configured otherwise.
const DefaultObjectKey = "todo-agent-data.json"

// LocalStore is the part of the entity store the engine reads and writes.
type LocalStore interface {
	Snapshot(ctx context.Context) (model.LocalData, error)
	ApplyMerged(ctx context.Context, data model.LocalData) error
	ReplaceAll(ctx context.Context, data model.LocalData, since time.Time) error
	OriginID(ctx context.Context) (string, error)
}

// SyncError wraps any failure of a sync step. Local data is untouched when
// a SyncError is returned from a download or decode step.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Outcome names what a sync cycle did.
type Outcome string

const (
	// OutcomeUploaded means local data was written to the bucket unchanged.
	OutcomeUploaded Outcome = "uploaded"
	// OutcomeAdopted means local data was replaced by the remote snapshot.
	OutcomeAdopted Outcome = "adopted"
	// OutcomeMerged means both sides were merged and the result written back.
	OutcomeMerged Outcome = "merged"
	// OutcomeDeferred means local data changed while the cycle ran, so the
	// remote snapshot was not adopted. The next cycle tries again.
	OutcomeDeferred Outcome = "deferred"
)

// CycleResult summarizes one completed sync cycle.
type CycleResult struct {
	Outcome    Outcome
	Todos      int
	Categories int
	At         time.Time
}

// ReconcileResult is the outcome of Reconcile. When Adopt is false no local
// change is needed; otherwise the caller should replace its data with Data.
type ReconcileResult struct {
	Adopt bool
	Data  model.LocalData
}

// Engine keeps the local store and one remote snapshot object in step.
type Engine struct {
	objects objstore.ObjectStore
	store   LocalStore
	key     string
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates an engine syncing store against key in objects. An
// empty key uses DefaultObjectKey and a nil logger uses slog.Default().
func NewEngine(objects objstore.ObjectStore, store LocalStore, key string, logger *slog.Logger) *Engine {
	if key == "" {
		key = DefaultObjectKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		objects: objects,
		store:   store,
		key:     key,
		logger:  logger.With("component", "sync"),
		now:     time.Now,
	}
}

// Upload writes local as the snapshot, overwriting whatever is there.
func (e *Engine) Upload(ctx context.Context, local model.LocalData) error {
	origin, err := e.store.OriginID(ctx)
	if err != nil {
		return &SyncError{Op: "upload", Err: fmt.Errorf("reading origin id: %w", err)}
	}

	now := e.now().UTC()
	snap := model.SyncSnapshot{
		Todos:      local.Todos,
		Categories: local.Categories,
		Version:    now.UnixMilli(),
		WrittenAt:  now,
		OriginID:   origin,
	}
	if snap.Todos == nil {
		snap.Todos = []model.Todo{}
	}
	if snap.Categories == nil {
		snap.Categories = []model.Category{}
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return &SyncError{Op: "upload", Err: fmt.Errorf("encoding snapshot: %w", err)}
	}
	if err := e.objects.Put(ctx, e.key, body, "application/json"); err != nil {
		return &SyncError{Op: "upload", Err: err}
	}

	e.logger.Debug("snapshot uploaded", "key", e.key, "todos", len(snap.Todos), "version", snap.Version)
	return nil
}

// Download reads the snapshot. A missing object yields nil and no error.
func (e *Engine) Download(ctx context.Context) (*model.SyncSnapshot, error) {
	body, err := e.objects.Get(ctx, e.key)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &SyncError{Op: "download", Err: err}
	}

	var snap model.SyncSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &SyncError{Op: "download", Err: fmt.Errorf("decoding snapshot: %w", err)}
	}
	return &snap, nil
}

// Reconcile compares local with the remote snapshot as a whole. If there is
// no snapshot, or it is not newer than the latest local edit, local is
// uploaded. Otherwise the remote data is returned for the caller to adopt.
func (e *Engine) Reconcile(ctx context.Context, local model.LocalData) (ReconcileResult, error) {
	remote, err := e.Download(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	if remote == nil {
		return ReconcileResult{}, e.Upload(ctx, local)
	}

	if remote.Version > local.LatestUpdate() {
		return ReconcileResult{
			Adopt: true,
			Data:  model.LocalData{Todos: remote.Todos, Categories: remote.Categories},
		}, nil
	}
	return ReconcileResult{}, e.Upload(ctx, local)
}

// ReconcileOnce runs Reconcile against the store and replaces local data
// when the remote snapshot wins. If a todo or category was written after
// the local snapshot was read, the replacement is skipped and the cycle
// reports OutcomeDeferred.
func (e *Engine) ReconcileOnce(ctx context.Context) (CycleResult, error) {
	local, err := e.store.Snapshot(ctx)
	if err != nil {
		return CycleResult{}, &SyncError{Op: "snapshot", Err: err}
	}

	res, err := e.Reconcile(ctx, local)
	if err != nil {
		return CycleResult{}, err
	}
	if !res.Adopt {
		return e.result(OutcomeUploaded, local), nil
	}

	err = e.store.ReplaceAll(ctx, res.Data, local.ReadAt)
	if errors.Is(err, model.ErrLocalChanged) {
		e.logger.Info("local data changed during sync, not adopting remote snapshot")
		return e.result(OutcomeDeferred, local), nil
	}
	if err != nil {
		return CycleResult{}, &SyncError{Op: "apply", Err: err}
	}
	return e.result(OutcomeAdopted, res.Data), nil
}

// SyncOnce runs one record-level sync cycle:
//   - no remote snapshot: upload local data;
//   - otherwise merge todos by UpdatedAt and categories by UpdatedAt (the
//     snapshot version breaking ties), write what the remote side
//     contributed, and upload the result.
//
// With no local todos the cycle amounts to adopting the remote snapshot.
// Local data changes only after the remote snapshot has been fully read and
// decoded, and only records the remote side won are written, so a local edit
// made during the download survives and is uploaded.
func (e *Engine) SyncOnce(ctx context.Context) (CycleResult, error) {
	local, err := e.store.Snapshot(ctx)
	if err != nil {
		return CycleResult{}, &SyncError{Op: "snapshot", Err: err}
	}

	remote, err := e.Download(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	if remote == nil {
		if err := e.Upload(ctx, local); err != nil {
			return CycleResult{}, err
		}
		return e.result(OutcomeUploaded, local), nil
	}

	outcome := OutcomeMerged
	if len(local.Todos) == 0 {
		outcome = OutcomeAdopted
	}

	remoteNewer := remote.Version > local.LatestUpdate()
	mergedTodos := Merge(local.Todos, remote.Todos)
	mergedCategories := MergeCategories(local.Categories, remote.Categories, remoteNewer)
	changes := model.LocalData{
		Todos:      changedTodos(local.Todos, mergedTodos),
		Categories: changedCategories(local.Categories, mergedCategories),
	}
	if len(changes.Todos) > 0 || len(changes.Categories) > 0 {
		if err := e.store.ApplyMerged(ctx, changes); err != nil {
			return CycleResult{}, &SyncError{Op: "apply", Err: err}
		}
	}

	// Re-read so the upload carries renumbered sort orders and any edit made
	// while the download was in flight.
	stored, err := e.store.Snapshot(ctx)
	if err != nil {
		return CycleResult{}, &SyncError{Op: "snapshot", Err: err}
	}
	if err := e.Upload(ctx, stored); err != nil {
		return CycleResult{}, err
	}

	e.logger.Info("sync merged",
		"origin", remote.OriginID,
		"outcome", outcome,
		"remote_todos", len(changes.Todos),
		"remote_categories", len(changes.Categories),
	)
	return e.result(outcome, stored), nil
}

func (e *Engine) result(outcome Outcome, data model.LocalData) CycleResult {
	return CycleResult{
		Outcome:    outcome,
		Todos:      len(data.Todos),
		Categories: len(data.Categories),
		At:         e.now().UTC(),
	}
}
