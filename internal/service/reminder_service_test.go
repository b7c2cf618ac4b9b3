package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/workerpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu    sync.Mutex
	fired []domain.Note
}

func (r *recordingNotifier) Notify(_ context.Context, _ int64, note domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, note)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func newReminderService(t *testing.T, env *testEnv) (ReminderService, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	pool := workerpool.New(nil, zap.NewNop())
	svc := NewReminderService(env.repo.NoteRepository, n, pool, ReminderServiceConfig{FireTimeout: 5 * time.Second}, zap.NewNop())
	svc.Start()
	t.Cleanup(func() {
		_ = svc.Stop(context.Background())
		_ = pool.Shutdown(context.Background())
	})
	return svc, n
}

func TestOnceSchedule(t *testing.T) {
	at := time.Now().Add(time.Minute)
	s := &onceSchedule{at: at}
	assert.Equal(t, at, s.Next(time.Now()))
	assert.True(t, s.Next(time.Now()).IsZero())
	assert.True(t, s.Next(time.Now()).IsZero())
}

func TestReminderService_FiresAndMarksInactive(t *testing.T) {
	env := newTestEnv(t)
	svc, notifier := newReminderService(t, env)

	n := env.seed(t, domain.Note{Title: "due", ReminderAt: time.Now().Add(100 * time.Millisecond).UnixMilli(), ReminderActive: true})
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))
	assert.Equal(t, 1, svc.Pending())

	require.Eventually(t, func() bool { return notifier.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		row, err := env.repo.GetByID(context.Background(), n.ID, testUID)
		return err == nil && !row.ReminderActive
	}, 2*time.Second, 20*time.Millisecond)
	assert.Zero(t, svc.Pending())
}

func TestReminderService_PastDueFiresImmediately(t *testing.T) {
	env := newTestEnv(t)
	svc, notifier := newReminderService(t, env)

	n := env.seed(t, domain.Note{Title: "late", ReminderAt: time.Now().Add(-time.Minute).UnixMilli(), ReminderActive: true})
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))
	require.Eventually(t, func() bool { return notifier.count() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestReminderService_CancelBeforeFire(t *testing.T) {
	env := newTestEnv(t)
	svc, notifier := newReminderService(t, env)

	n := env.seed(t, domain.Note{Title: "x", ReminderAt: time.Now().Add(300 * time.Millisecond).UnixMilli(), ReminderActive: true})
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))
	require.NoError(t, svc.Cancel(context.Background(), n, testUID))
	require.NoError(t, svc.Cancel(context.Background(), n, testUID))
	assert.Zero(t, svc.Pending())

	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, notifier.count())
}

func TestReminderService_SkipsStaleRow(t *testing.T) {
	env := newTestEnv(t)
	svc, notifier := newReminderService(t, env)

	// 存储中的提醒未激活
	n := env.seed(t, domain.Note{Title: "x", ReminderAt: time.Now().Add(-time.Second).UnixMilli()})
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))

	require.Eventually(t, func() bool { return svc.Pending() == 0 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, notifier.count())
}

func TestReminderService_RescheduleReplaces(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newReminderService(t, env)

	n := env.seed(t, domain.Note{Title: "x", ReminderAt: future(), ReminderActive: true})
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))
	n.ReminderAt += 1000
	require.NoError(t, svc.Schedule(context.Background(), n, testUID))
	assert.Equal(t, 1, svc.Pending())
}

func TestReminderService_ScheduleUnsaved(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newReminderService(t, env)
	err := svc.Schedule(context.Background(), domain.Note{ReminderAt: future()}, testUID)
	assert.ErrorIs(t, err, domain.ErrNoteNotSaved)
	assert.NoError(t, svc.Cancel(context.Background(), domain.Note{}, testUID))
}

func TestReminderService_Restore(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newReminderService(t, env)

	env.seed(t, domain.Note{Title: "a", ReminderAt: future(), ReminderActive: true})
	env.seed(t, domain.Note{Title: "b", ReminderAt: future(), ReminderActive: true})
	env.seed(t, domain.Note{Title: "c", ReminderAt: future()})

	count, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, svc.Pending())

	count, err = svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMultiNotifier_JoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	fail := NotifierFunc(func(context.Context, int64, domain.Note) error { return assert.AnError })

	err := NewMultiNotifier(ok, fail, NewLogNotifier(zap.NewNop())).Notify(context.Background(), testUID, domain.Note{ID: 1})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, ok.count())
}
