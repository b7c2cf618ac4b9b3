package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/haierkeys/notely-service/internal/dao"
	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/writequeue"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUID int64 = 7

// eventLog 记录存储与调度调用的先后顺序
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// recordingRepo 在真实仓储外记录写操作
type recordingRepo struct {
	domain.NoteRepository
	log *eventLog
}

func (r *recordingRepo) Create(ctx context.Context, note *domain.Note, uid int64) (*domain.Note, error) {
	n, err := r.NoteRepository.Create(ctx, note, uid)
	if err == nil {
		r.log.add("insert:%d", n.ID)
	}
	return n, err
}

func (r *recordingRepo) Update(ctx context.Context, note *domain.Note, uid int64) error {
	r.log.add("update:%d", note.ID)
	return r.NoteRepository.Update(ctx, note, uid)
}

func (r *recordingRepo) Delete(ctx context.Context, id, uid int64) error {
	r.log.add("delete:%d", id)
	return r.NoteRepository.Delete(ctx, id, uid)
}

func (r *recordingRepo) Restore(ctx context.Context, note *domain.Note, uid int64) error {
	r.log.add("restore:%d", note.ID)
	return r.NoteRepository.Restore(ctx, note, uid)
}

// fakeScheduler 只记录调用
type fakeScheduler struct {
	log *eventLog
	err error

	mu     sync.Mutex
	active map[int64]domain.Note
}

func (f *fakeScheduler) Schedule(_ context.Context, note domain.Note, _ int64) error {
	f.log.add("schedule:%d", note.ID)
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[note.ID] = note
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, note domain.Note, _ int64) error {
	f.log.add("cancel:%d", note.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, note.ID)
	return nil
}

func (f *fakeScheduler) isActive(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.active[id]
	return ok
}

type testEnv struct {
	repo      *recordingRepo
	scheduler *fakeScheduler
	log       *eventLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dao.NewDBEngineWithConfig(dao.DatabaseConfig{Type: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)

	wq := writequeue.New(nil, zap.NewNop())
	t.Cleanup(func() {
		_ = wq.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	d := dao.New(db,
		dao.WithConfig(&dao.DatabaseConfig{AutoMigrate: true}),
		dao.WithLogger(zap.NewNop()),
		dao.WithWriteQueueManager(wq),
	)

	log := &eventLog{}
	return &testEnv{
		repo:      &recordingRepo{NoteRepository: dao.NewNoteRepository(d), log: log},
		scheduler: &fakeScheduler{log: log, active: make(map[int64]domain.Note)},
		log:       log,
	}
}

func (e *testEnv) deps() EditSessionDeps {
	return EditSessionDeps{
		Notes:        e.repo,
		Reminders:    e.scheduler,
		Logger:       zap.NewNop(),
		DefaultColor: domain.ColorYellow,
	}
}

// seed 直接写入一条笔记，不记录事件
func (e *testEnv) seed(t *testing.T, n domain.Note) domain.Note {
	t.Helper()
	created, err := e.repo.NoteRepository.Create(context.Background(), &n, testUID)
	require.NoError(t, err)
	return *created
}
