package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nhle/todo-agent/internal/model"
	"github.com/nhle/todo-agent/internal/objstore"
	"github.com/nhle/todo-agent/internal/objstore/mocks"
	"github.com/nhle/todo-agent/internal/store"
	"github.com/nhle/todo-agent/tests/testutil"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *mocks.MockObjectStore, *store.SQLiteStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	objects := mocks.NewMockObjectStore(ctrl)
	s := testutil.NewTestStore(t)

	e := NewEngine(objects, s, "", nil)
	e.now = func() time.Time { return fixedNow }
	return e, objects, s
}

func encodeSnapshot(t *testing.T, snap model.SyncSnapshot) []byte {
	t.Helper()
	body, err := json.Marshal(snap)
	require.NoError(t, err)
	return body
}

// capturePut records the body of the next Put to the default key.
func capturePut(objects *mocks.MockObjectStore, into *model.SyncSnapshot) {
	objects.EXPECT().
		Put(gomock.Any(), DefaultObjectKey, gomock.Any(), "application/json").
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ string) error {
			return json.Unmarshal(data, into)
		})
}

func TestUploadWritesVersionedSnapshot(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "a")

	local, err := s.Snapshot(ctx)
	require.NoError(t, err)
	origin, err := s.OriginID(ctx)
	require.NoError(t, err)

	var sent model.SyncSnapshot
	capturePut(objects, &sent)

	require.NoError(t, e.Upload(ctx, local))
	assert.Equal(t, fixedNow.UnixMilli(), sent.Version)
	assert.True(t, fixedNow.Equal(sent.WrittenAt))
	assert.Equal(t, origin, sent.OriginID)
	require.Len(t, sent.Todos, 1)
	assert.Equal(t, "a", sent.Todos[0].Title)
	assert.Len(t, sent.Categories, 3)
}

func TestUploadEncodesEmptyLists(t *testing.T) {
	e, objects, _ := newTestEngine(t)

	objects.EXPECT().
		Put(gomock.Any(), DefaultObjectKey, gomock.Any(), "application/json").
		DoAndReturn(func(_ context.Context, _ string, data []byte, _ string) error {
			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &raw))
			assert.JSONEq(t, `[]`, string(raw["todos"]))
			assert.JSONEq(t, `[]`, string(raw["categories"]))
			return nil
		})

	require.NoError(t, e.Upload(context.Background(), model.LocalData{}))
}

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		e, objects, _ := newTestEngine(t)
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, objstore.ErrNotFound)

		snap, err := e.Download(ctx)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("transport failure", func(t *testing.T) {
		e, objects, _ := newTestEngine(t)
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, errors.New("connection reset"))

		_, err := e.Download(ctx)
		var syncErr *SyncError
		require.ErrorAs(t, err, &syncErr)
		assert.Equal(t, "download", syncErr.Op)
	})

	t.Run("malformed", func(t *testing.T) {
		e, objects, _ := newTestEngine(t)
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return([]byte("{not json"), nil)

		_, err := e.Download(ctx)
		var syncErr *SyncError
		assert.ErrorAs(t, err, &syncErr)
	})

	t.Run("present", func(t *testing.T) {
		e, objects, _ := newTestEngine(t)
		body := encodeSnapshot(t, model.SyncSnapshot{
			Todos:    []model.Todo{todoAt("r", "remote", 0, 0)},
			Version:  42,
			OriginID: "other",
		})
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)

		snap, err := e.Download(ctx)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, int64(42), snap.Version)
		assert.Equal(t, "other", snap.OriginID)
		require.Len(t, snap.Todos, 1)
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("no remote uploads local", func(t *testing.T) {
		e, objects, s := newTestEngine(t)
		testutil.CreateTodos(t, s, "a")
		local, err := s.Snapshot(ctx)
		require.NoError(t, err)

		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, objstore.ErrNotFound)
		var sent model.SyncSnapshot
		capturePut(objects, &sent)

		res, err := e.Reconcile(ctx, local)
		require.NoError(t, err)
		assert.False(t, res.Adopt)
		assert.Len(t, sent.Todos, 1)
	})

	t.Run("newer remote is adopted", func(t *testing.T) {
		e, objects, s := newTestEngine(t)
		testutil.CreateTodos(t, s, "a")
		local, err := s.Snapshot(ctx)
		require.NoError(t, err)

		body := encodeSnapshot(t, model.SyncSnapshot{
			Todos:   []model.Todo{todoAt("r", "remote", 0, 0)},
			Version: local.LatestUpdate() + 1000,
		})
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)

		res, err := e.Reconcile(ctx, local)
		require.NoError(t, err)
		assert.True(t, res.Adopt)
		require.Len(t, res.Data.Todos, 1)
		assert.Equal(t, "remote", res.Data.Todos[0].Title)
	})

	t.Run("older remote is overwritten", func(t *testing.T) {
		e, objects, s := newTestEngine(t)
		testutil.CreateTodos(t, s, "a")
		local, err := s.Snapshot(ctx)
		require.NoError(t, err)

		body := encodeSnapshot(t, model.SyncSnapshot{Version: local.LatestUpdate() - 1})
		objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)
		var sent model.SyncSnapshot
		capturePut(objects, &sent)

		res, err := e.Reconcile(ctx, local)
		require.NoError(t, err)
		assert.False(t, res.Adopt)
		assert.Equal(t, fixedNow.UnixMilli(), sent.Version)
	})
}

func TestReconcileOnceReplacesLocalData(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "stale")

	now := time.Now().UTC()
	remote := todoAt("r", "fresh", 0, 0)
	remote.CreatedAt, remote.UpdatedAt = now, now
	body := encodeSnapshot(t, model.SyncSnapshot{
		Todos:      []model.Todo{remote},
		Categories: model.DefaultCategories,
		Version:    now.Add(time.Hour).UnixMilli(),
	})
	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)

	res, err := e.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdopted, res.Outcome)
	assert.Equal(t, []string{"fresh"}, testutil.ActiveTitles(t, s))
}

func TestSyncOnceUploadsWhenRemoteAbsent(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "a", "b")

	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, objstore.ErrNotFound)
	var sent model.SyncSnapshot
	capturePut(objects, &sent)

	res, err := e.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, res.Outcome)
	assert.Equal(t, 2, res.Todos)
	assert.Len(t, sent.Todos, 2)
}

func TestSyncOnceAdoptsIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)

	body := encodeSnapshot(t, model.SyncSnapshot{
		Todos:   []model.Todo{todoAt("r1", "from laptop", 0, 0)},
		Version: fixedNow.UnixMilli(),
	})
	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)
	var sent model.SyncSnapshot
	capturePut(objects, &sent)

	res, err := e.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdopted, res.Outcome)
	assert.Equal(t, []string{"from laptop"}, testutil.ActiveTitles(t, s))
	assert.Len(t, sent.Todos, 1)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3, "local categories survive a snapshot without any")
}

func TestSyncOnceMergesAndUploads(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	local := testutil.CreateTodos(t, s, "mine", "also mine")

	stale := local[0]
	stale.Title = "old copy of mine"
	stale.UpdatedAt = local[0].UpdatedAt.Add(-time.Hour)

	now := time.Now().UTC()
	incoming := todoAt("remote-1", "theirs", 0, 0)
	incoming.CreatedAt, incoming.UpdatedAt = now, now

	body := encodeSnapshot(t, model.SyncSnapshot{
		Todos:      []model.Todo{stale, incoming},
		Categories: []model.Category{{ID: "1", Name: "Renamed"}, {ID: "8", Name: "Music", Color: "#000000", Icon: "music"}},
		Version:    now.Add(-time.Hour).UnixMilli(),
	})
	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(body, nil)
	var sent model.SyncSnapshot
	capturePut(objects, &sent)

	res, err := e.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMerged, res.Outcome)
	assert.Equal(t, 3, res.Todos)

	got, err := s.GetTodo(ctx, local[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = s.GetTodo(ctx, "remote-1")
	require.NoError(t, err)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, "Work", categories[0].Name)

	assert.Len(t, sent.Todos, 3)
	assert.Len(t, sent.Categories, 4)
}

func TestSyncOnceLeavesLocalDataOnDownloadFailure(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "keep me")

	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, errors.New("timeout"))

	_, err := e.SyncOnce(ctx)
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "download", syncErr.Op)
	assert.Equal(t, []string{"keep me"}, testutil.ActiveTitles(t, s))
}

func TestSyncOnceReportsUploadFailure(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "a")

	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(nil, objstore.ErrNotFound)
	objects.EXPECT().Put(gomock.Any(), DefaultObjectKey, gomock.Any(), "application/json").
		Return(errors.New("access denied"))

	_, err := e.SyncOnce(ctx)
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "upload", syncErr.Op)
}

// seedTodo stores todo as is, timestamps included.
func seedTodo(t *testing.T, s *store.SQLiteStore, todo model.Todo) {
	t.Helper()
	require.NoError(t, s.ApplyMerged(context.Background(), model.LocalData{Todos: []model.Todo{todo}}))
}

func TestSyncOnceKeepsEditMadeDuringDownload(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		remote func(local model.Todo) model.Todo
		edit   func(ctx context.Context, s *store.SQLiteStore, id string) error
		check  func(t *testing.T, got *model.Todo)
	}{
		{
			name:   "title edit against unchanged remote copy",
			remote: func(local model.Todo) model.Todo { return local },
			edit: func(ctx context.Context, s *store.SQLiteStore, id string) error {
				title := "edited mid-sync"
				_, err := s.UpdateTodo(ctx, id, model.TodoPatch{Title: &title})
				return err
			},
			check: func(t *testing.T, got *model.Todo) { assert.Equal(t, "edited mid-sync", got.Title) },
		},
		{
			name: "title edit against newer remote copy",
			remote: func(local model.Todo) model.Todo {
				local.Title = "remote title"
				local.UpdatedAt = old.Add(time.Hour)
				return local
			},
			edit: func(ctx context.Context, s *store.SQLiteStore, id string) error {
				title := "edited mid-sync"
				_, err := s.UpdateTodo(ctx, id, model.TodoPatch{Title: &title})
				return err
			},
			check: func(t *testing.T, got *model.Todo) { assert.Equal(t, "edited mid-sync", got.Title) },
		},
		{
			name:   "toggle",
			remote: func(local model.Todo) model.Todo { return local },
			edit: func(ctx context.Context, s *store.SQLiteStore, id string) error {
				_, err := s.ToggleTodo(ctx, id)
				return err
			},
			check: func(t *testing.T, got *model.Todo) { assert.True(t, got.Completed) },
		},
		{
			name:   "soft delete",
			remote: func(local model.Todo) model.Todo { return local },
			edit: func(ctx context.Context, s *store.SQLiteStore, id string) error {
				return s.SoftDeleteTodo(ctx, id)
			},
			check: func(t *testing.T, got *model.Todo) { assert.True(t, got.IsTrashed()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e, objects, s := newTestEngine(t)

			original := todoAt("t1", "original", 0, 0)
			original.CreatedAt, original.UpdatedAt = old, old
			seedTodo(t, s, original)

			body := encodeSnapshot(t, model.SyncSnapshot{
				Todos:   []model.Todo{tt.remote(original)},
				Version: old.UnixMilli(),
			})
			objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).
				DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
					require.NoError(t, tt.edit(ctx, s, original.ID))
					return body, nil
				})
			var sent model.SyncSnapshot
			capturePut(objects, &sent)

			_, err := e.SyncOnce(ctx)
			require.NoError(t, err)

			got, err := s.GetTodo(ctx, original.ID)
			require.NoError(t, err)
			tt.check(t, got)

			require.Len(t, sent.Todos, 1)
			tt.check(t, &sent.Todos[0])

			// The next cycle sees its own upload and keeps the edit.
			uploaded := encodeSnapshot(t, sent)
			objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).Return(uploaded, nil)
			capturePut(objects, &sent)

			_, err = e.SyncOnce(ctx)
			require.NoError(t, err)
			got, err = s.GetTodo(ctx, original.ID)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestSyncOnceAdoptKeepsTodoCreatedDuringDownload(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)

	body := encodeSnapshot(t, model.SyncSnapshot{
		Todos:   []model.Todo{todoAt("r1", "from laptop", 0, 0)},
		Version: fixedNow.UnixMilli(),
	})
	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).
		DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
			_, err := s.CreateTodo(ctx, model.TodoDraft{Title: "typed during download"})
			require.NoError(t, err)
			return body, nil
		})
	var sent model.SyncSnapshot
	capturePut(objects, &sent)

	res, err := e.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdopted, res.Outcome)
	assert.ElementsMatch(t, []string{"from laptop", "typed during download"}, testutil.ActiveTitles(t, s))
	assert.Len(t, sent.Todos, 2)
}

func TestReconcileOnceDefersWhenLocalChangesDuringDownload(t *testing.T) {
	ctx := context.Background()
	e, objects, s := newTestEngine(t)
	testutil.CreateTodos(t, s, "stale")

	now := time.Now().UTC()
	remote := todoAt("r", "fresh", 0, 0)
	remote.CreatedAt, remote.UpdatedAt = now, now
	body := encodeSnapshot(t, model.SyncSnapshot{
		Todos:   []model.Todo{remote},
		Version: now.Add(time.Hour).UnixMilli(),
	})
	objects.EXPECT().Get(gomock.Any(), DefaultObjectKey).
		DoAndReturn(func(ctx context.Context, _ string) ([]byte, error) {
			_, err := s.CreateTodo(ctx, model.TodoDraft{Title: "typed during download"})
			require.NoError(t, err)
			return body, nil
		})

	res, err := e.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, res.Outcome)
	assert.ElementsMatch(t, []string{"stale", "typed during download"}, testutil.ActiveTitles(t, s))
}

// memBucket is an in-memory object store shared by several engines.
type memBucket struct {
	objects map[string][]byte
}

func (b *memBucket) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	return data, nil
}

func (b *memBucket) Put(_ context.Context, key string, data []byte, _ string) error {
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func categoryName(t *testing.T, s *store.SQLiteStore, id string) string {
	t.Helper()
	categories, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	t.Fatalf("category %s not found", id)
	return ""
}

func TestSyncOnceCategoryEditsConvergeAcrossDevices(t *testing.T) {
	ctx := context.Background()
	bucket := &memBucket{objects: map[string][]byte{}}
	storeA, storeB := testutil.NewTestStore(t), testutil.NewTestStore(t)
	engineA := NewEngine(bucket, storeA, "", nil)
	engineB := NewEngine(bucket, storeB, "", nil)
	testutil.CreateTodos(t, storeA, "on laptop")

	run := func(e *Engine) {
		t.Helper()
		_, err := e.SyncOnce(ctx)
		require.NoError(t, err)
	}
	run(engineA)
	run(engineB)

	require.NoError(t, storeB.UpdateCategory(ctx, model.Category{ID: "1", Name: "Job", Color: "#6366F1", Icon: "folder"}))
	for range 3 {
		run(engineB)
		run(engineA)
	}
	assert.Equal(t, "Job", categoryName(t, storeA, "1"))
	assert.Equal(t, "Job", categoryName(t, storeB, "1"))

	require.NoError(t, storeA.UpdateCategory(ctx, model.Category{ID: "2", Name: "Home", Color: "#10B981", Icon: "folder"}))
	run(engineA)
	run(engineB)
	assert.Equal(t, "Home", categoryName(t, storeB, "2"))
	assert.Equal(t, "Job", categoryName(t, storeB, "1"))
}
