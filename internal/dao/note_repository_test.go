package dao

import (
	"context"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/writequeue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUID int64 = 1001

func newTestRepo(t *testing.T) (domain.NoteRepository, *Dao) {
	t.Helper()

	db, err := NewDBEngineWithConfig(DatabaseConfig{Type: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)

	wq := writequeue.New(nil, zap.NewNop())
	t.Cleanup(func() {
		_ = wq.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	d := New(db,
		WithConfig(&DatabaseConfig{AutoMigrate: true}),
		WithLogger(zap.NewNop()),
		WithWriteQueueManager(wq),
	)
	return NewNoteRepository(d), d
}

func recvNote(t *testing.T, ch <-chan *domain.Note) *domain.Note {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	return nil
}

func recvList(t *testing.T, ch <-chan []*domain.Note) []*domain.Note {
	t.Helper()
	select {
	case l, ok := <-ch:
		require.True(t, ok, "channel closed")
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	return nil
}

func TestNoteRepository_CreateAssignsID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Note{ID: 99, Title: "A", Color: domain.ColorBlue, UpdatedTimestamp: 10}, testUID)
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.NotEqual(t, int64(99), created.ID)

	got, err := repo.GetByID(ctx, created.ID, testUID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
	assert.Equal(t, domain.ColorBlue, got.Color)
}

func TestNoteRepository_GetByIDScopedToOwner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Note{Title: "mine"}, testUID)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID, testUID+1)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestNoteRepository_UpdateMissingReturnsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Update(context.Background(), &domain.Note{ID: 12345, Title: "x"}, testUID)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestNoteRepository_UpdateWritesZeroValues(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Note{Title: "A", Body: "b", ReminderAt: 5000, ReminderActive: true, Color: domain.ColorRed}, testUID)
	require.NoError(t, err)

	cleared := *created
	cleared.Body = ""
	cleared.ReminderAt = 0
	cleared.ReminderActive = false
	cleared.Color = domain.ColorWhite
	require.NoError(t, repo.Update(ctx, &cleared, testUID))

	got, err := repo.GetByID(ctx, created.ID, testUID)
	require.NoError(t, err)
	assert.Equal(t, cleared, *got)
}

func TestNoteRepository_DeleteIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Note{Title: "A"}, testUID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID, testUID))
	require.NoError(t, repo.Delete(ctx, created.ID, testUID))
	require.NoError(t, repo.Delete(ctx, 987654, testUID))

	_, err = repo.GetByID(ctx, created.ID, testUID)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestNoteRepository_RestoreKeepsID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Note{Title: "A", UpdatedTimestamp: 100}, testUID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, created.ID, testUID))

	require.NoError(t, repo.Restore(ctx, created, testUID))

	got, err := repo.GetByID(ctx, created.ID, testUID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	// 重复恢复会主键冲突
	err = repo.Restore(ctx, created, testUID)
	assert.True(t, domain.IsPersistenceError(err))
}

func TestNoteRepository_DeletedIDsAreNotReused(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, &domain.Note{Title: "A"}, testUID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, first.ID, testUID))

	second, err := repo.Create(ctx, &domain.Note{Title: "B"}, testUID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, repo.Restore(ctx, first, testUID))
}

func TestNoteRepository_DeleteAllAndRestoreAll(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i, title := range []string{"A", "B", "C"} {
		_, err := repo.Create(ctx, &domain.Note{Title: title, UpdatedTimestamp: int64(i + 1)}, testUID)
		require.NoError(t, err)
	}
	other, err := repo.Create(ctx, &domain.Note{Title: "other"}, testUID+1)
	require.NoError(t, err)

	before, err := repo.List(ctx, testUID)
	require.NoError(t, err)
	require.Len(t, before, 3)
	assert.Equal(t, "C", before[0].Title)

	require.NoError(t, repo.DeleteAll(ctx, testUID))
	empty, err := repo.List(ctx, testUID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.GetByID(ctx, other.ID, testUID+1)
	require.NoError(t, err)

	require.NoError(t, repo.RestoreAll(ctx, before, testUID))
	after, err := repo.List(ctx, testUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
}

func TestNoteRepository_RestoreAllIsAtomic(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	kept, err := repo.Create(ctx, &domain.Note{Title: "kept"}, testUID)
	require.NoError(t, err)

	batch := []*domain.Note{
		{ID: kept.ID + 100, Title: "new"},
		kept, // 主键冲突，整个事务回滚
	}
	err = repo.RestoreAll(ctx, batch, testUID)
	require.Error(t, err)

	_, err = repo.GetByID(ctx, kept.ID+100, testUID)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
}

func TestNoteRepository_ListActiveReminders(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Note{Title: "idle"}, testUID)
	require.NoError(t, err)
	active, err := repo.Create(ctx, &domain.Note{Title: "armed", ReminderAt: 5000, ReminderActive: true}, testUID)
	require.NoError(t, err)
	otherActive, err := repo.Create(ctx, &domain.Note{Title: "armed too", ReminderAt: 4000, ReminderActive: true}, testUID+1)
	require.NoError(t, err)

	list, err := repo.ListActiveReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, otherActive.ID, list[0].ID)
	assert.Equal(t, testUID+1, list[0].UID)
	assert.Equal(t, active.ID, list[1].ID)
	assert.Equal(t, testUID, list[1].UID)
}

func TestNoteRepository_ObserveNoteEmitsInitialAndChanges(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := repo.Create(ctx, &domain.Note{Title: "A"}, testUID)
	require.NoError(t, err)

	ch, err := repo.ObserveNote(ctx, created.ID, testUID)
	require.NoError(t, err)

	first := recvNote(t, ch)
	require.NotNil(t, first)
	assert.Equal(t, "A", first.Title)

	updated := *created
	updated.Title = "B"
	require.NoError(t, repo.Update(ctx, &updated, testUID))
	assert.Equal(t, "B", recvNote(t, ch).Title)

	require.NoError(t, repo.Delete(ctx, created.ID, testUID))
	assert.Nil(t, recvNote(t, ch))
}

func TestNoteRepository_ObserveNoteMissingEmitsNil(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.ObserveNote(ctx, 42, testUID)
	require.NoError(t, err)
	assert.Nil(t, recvNote(t, ch))
}

func TestNoteRepository_ObserveIgnoresUnrelatedChanges(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched, err := repo.Create(ctx, &domain.Note{Title: "watched"}, testUID)
	require.NoError(t, err)

	ch, err := repo.ObserveNote(ctx, watched.ID, testUID)
	require.NoError(t, err)
	recvNote(t, ch)

	_, err = repo.Create(ctx, &domain.Note{Title: "unrelated"}, testUID)
	require.NoError(t, err)

	select {
	case n := <-ch:
		t.Fatalf("unexpected emission %+v", n)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNoteRepository_ObserveLatest(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.ObserveLatest(ctx, testUID)
	require.NoError(t, err)
	assert.Nil(t, recvNote(t, ch))

	_, err = repo.Create(ctx, &domain.Note{Title: "old", UpdatedTimestamp: 1}, testUID)
	require.NoError(t, err)
	assert.Equal(t, "old", recvNote(t, ch).Title)

	_, err = repo.Create(ctx, &domain.Note{Title: "new", UpdatedTimestamp: 2}, testUID)
	require.NoError(t, err)
	assert.Equal(t, "new", recvNote(t, ch).Title)
}

func TestNoteRepository_ObserveAll(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := repo.ObserveAll(ctx, testUID)
	require.NoError(t, err)
	assert.Empty(t, recvList(t, ch))

	_, err = repo.Create(ctx, &domain.Note{Title: "A", UpdatedTimestamp: 1}, testUID)
	require.NoError(t, err)
	list := recvList(t, ch)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Title)
}

func TestNoteRepository_ObserveCancelClosesChannel(t *testing.T) {
	repo, d := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := repo.ObserveAll(ctx, testUID)
	require.NoError(t, err)
	recvList(t, ch)
	assert.Equal(t, 1, d.hub.subscriberCount(testUID))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	assert.Eventually(t, func() bool {
		return d.hub.subscriberCount(testUID) == 0
	}, time.Second, 10*time.Millisecond)

	// 取消后写入不会产生副作用
	_, err = repo.Create(context.Background(), &domain.Note{Title: "after"}, testUID)
	require.NoError(t, err)
}

func TestNoteRepository_ObserveConflatesToLatest(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := repo.Create(ctx, &domain.Note{Title: "v0"}, testUID)
	require.NoError(t, err)

	ch, err := repo.ObserveNote(ctx, created.ID, testUID)
	require.NoError(t, err)

	// 不读取通道，连续写入多次
	n := *created
	for _, title := range []string{"v1", "v2", "v3"} {
		n.Title = title
		require.NoError(t, repo.Update(ctx, &n, testUID))
	}

	assert.Eventually(t, func() bool {
		select {
		case got := <-ch:
			return got != nil && got.Title == "v3"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
