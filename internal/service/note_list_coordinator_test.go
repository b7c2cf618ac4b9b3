package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCoordinator(env *testEnv) *NoteListCoordinator {
	return NewNoteListCoordinator(testUID, env.repo, env.scheduler, zap.NewNop())
}

func seedMany(t *testing.T, env *testEnv, n int) []domain.Note {
	t.Helper()
	notes := make([]domain.Note, 0, n)
	for i := 0; i < n; i++ {
		notes = append(notes, env.seed(t, domain.Note{
			Title:            fmt.Sprintf("note %d", i),
			Body:             "body",
			UpdatedTimestamp: int64(100 + i),
			Color:            domain.Color(i % 10),
		}))
	}
	return notes
}

func listValues(t *testing.T, env *testEnv) []domain.Note {
	t.Helper()
	list, err := env.repo.List(context.Background(), testUID)
	require.NoError(t, err)
	out := make([]domain.Note, 0, len(list))
	for _, n := range list {
		out = append(out, *n)
	}
	return out
}

func TestCoordinator_DeleteUndoRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	notes := seedMany(t, env, 3)
	before := listValues(t, env)

	target := notes[1]
	require.NoError(t, c.DeleteOne(context.Background(), &target))
	assert.Len(t, listValues(t, env), 2)
	assert.True(t, c.HasPendingUndo())

	restored, err := c.UndoOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, target.ID, restored.ID)
	assert.Equal(t, before, listValues(t, env))
	assert.False(t, c.HasPendingUndo())
}

func TestCoordinator_DeleteUndoProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)
	properties.Property("undo after delete restores the list", prop.ForAll(func(size, pick int) bool {
		env := newTestEnv(t)
		c := newCoordinator(env)
		notes := seedMany(t, env, size)
		before := listValues(t, env)

		target := notes[pick%size]
		if err := c.DeleteOne(context.Background(), &target); err != nil {
			return false
		}
		if _, err := c.UndoOne(context.Background()); err != nil {
			return false
		}
		return assert.ObjectsAreEqual(before, listValues(t, env))
	}, gen.IntRange(1, 6), gen.IntRange(0, 100)))
	properties.TestingRun(t)
}

func TestCoordinator_UndoOneEmpty(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	restored, err := c.UndoOne(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
	assert.Empty(t, env.log.list())
}

func TestCoordinator_UndoOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	notes := seedMany(t, env, 1)

	require.NoError(t, c.DeleteOne(context.Background(), &notes[0]))
	_, err := c.UndoOne(context.Background())
	require.NoError(t, err)

	restored, err := c.UndoOne(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
	assert.Len(t, listValues(t, env), 1)
}

func TestCoordinator_DeleteUnsaved(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	n := domain.EmptyNote(domain.ColorWhite)
	assert.ErrorIs(t, c.DeleteOne(context.Background(), &n), domain.ErrNoteNotSaved)
	assert.ErrorIs(t, c.DeleteOne(context.Background(), nil), domain.ErrNoteNotSaved)
}

func TestCoordinator_ReminderCancelledAndRescheduled(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	n := env.seed(t, domain.Note{Title: "r", ReminderAt: future(), ReminderActive: true})

	require.NoError(t, c.DeleteOne(context.Background(), &n))
	require.NoError(t, func() error { _, err := c.UndoOne(context.Background()); return err }())

	assert.Equal(t, []string{
		fmt.Sprintf("cancel:%d", n.ID),
		fmt.Sprintf("delete:%d", n.ID),
		fmt.Sprintf("restore:%d", n.ID),
		fmt.Sprintf("schedule:%d", n.ID),
	}, env.log.list())
	assert.True(t, env.scheduler.isActive(n.ID))
}

func TestCoordinator_ClearAllUndoAll(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)
	seedMany(t, env, 4)
	active := env.seed(t, domain.Note{Title: "r", UpdatedTimestamp: 1, ReminderAt: future(), ReminderActive: true})
	before := listValues(t, env)

	count, err := c.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Empty(t, listValues(t, env))
	assert.True(t, c.HasPendingBulkUndo())
	assert.Contains(t, env.log.list(), fmt.Sprintf("cancel:%d", active.ID))

	restored, err := c.UndoAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, restored, 5)
	assert.Equal(t, before, listValues(t, env))
	assert.False(t, c.HasPendingBulkUndo())
	assert.True(t, env.scheduler.isActive(active.ID))
}

func TestCoordinator_ClearAllEmpty(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)

	count, err := c.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	restored, err := c.UndoAll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestCoordinator_ObserveAll(t *testing.T) {
	env := newTestEnv(t)
	c := newCoordinator(env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.ObserveAll(ctx)
	require.NoError(t, err)

	recv := func() NoteListState {
		select {
		case st := <-ch:
			return st
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for list state")
		}
		return NoteListState{}
	}

	st := recv()
	assert.Equal(t, UIStateEmpty, st.State)
	assert.Empty(t, st.Notes)

	env.seed(t, domain.Note{Title: "a"})
	st = recv()
	assert.Equal(t, UIStateHasData, st.State)
	require.Len(t, st.Notes, 1)
	assert.Equal(t, "a", st.Notes[0].Title)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
