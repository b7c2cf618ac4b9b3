package service

import (
	"context"
	"sync"

	"github.com/haierkeys/notely-service/internal/domain"
	"github.com/haierkeys/notely-service/pkg/logger"
	"go.uber.org/zap"
)

// SessionService 按用户管理编辑会话
// 每个用户同一时间最多一个会话，打开新会话会关闭旧会话
type SessionService interface {
	// Open 为用户打开会话，noteID <= 0 进入新建模式
	Open(ctx context.Context, uid, noteID int64) (*EditSession, error)
	// Get 获取用户当前会话，没有返回 ErrSessionNotFound
	Get(uid int64) (*EditSession, error)
	// Close 关闭用户当前会话，返回是否存在
	Close(uid int64) bool
	// Count 当前打开的会话数量
	Count() int
	// Shutdown 关闭全部会话
	Shutdown()
}

type sessionService struct {
	deps   EditSessionDeps
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*EditSession
}

// NewSessionService 创建会话管理服务
func NewSessionService(notes domain.NoteRepository, reminders domain.ReminderScheduler, cfg SessionServiceConfig, lg *zap.Logger) SessionService {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &sessionService{
		deps: EditSessionDeps{
			Notes:        notes,
			Reminders:    reminders,
			Logger:       lg,
			DefaultColor: cfg.DefaultColor,
		},
		logger:   lg,
		sessions: make(map[int64]*EditSession),
	}
}

func (s *sessionService) take(uid int64) *EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sessions[uid]
	if !ok {
		return nil
	}
	delete(s.sessions, uid)
	editSessionsOpen.Set(float64(len(s.sessions)))
	return old
}

func (s *sessionService) Open(ctx context.Context, uid, noteID int64) (*EditSession, error) {
	if old := s.take(uid); old != nil {
		old.Close()
	}

	sess, err := StartEditSession(ctx, s.deps, uid, noteID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// 并发打开时保留最后一个
	prev := s.sessions[uid]
	s.sessions[uid] = sess
	editSessionsOpen.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	s.logger.Info("edit session opened",
		zap.Int64(logger.FieldUID, uid),
		zap.String(logger.FieldSessionID, sess.ID()),
		zap.String(logger.FieldMode, sess.Mode().String()),
	)
	return sess, nil
}

func (s *sessionService) Get(uid int64) (*EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionService) Close(uid int64) bool {
	sess := s.take(uid)
	if sess == nil {
		return false
	}
	sess.Close()
	return true
}

func (s *sessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionService) Shutdown() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[int64]*EditSession)
	editSessionsOpen.Set(0)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
}

// NoteListService 按用户提供列表协调器
// 撤销缓冲在同一用户的所有请求之间共享
type NoteListService interface {
	For(uid int64) *NoteListCoordinator
}

type noteListService struct {
	notes     domain.NoteRepository
	reminders domain.ReminderScheduler
	logger    *zap.Logger

	mu     sync.Mutex
	coords map[int64]*NoteListCoordinator
}

// NewNoteListService 创建列表服务
func NewNoteListService(notes domain.NoteRepository, reminders domain.ReminderScheduler, lg *zap.Logger) NoteListService {
	return &noteListService{
		notes:     notes,
		reminders: reminders,
		logger:    lg,
		coords:    make(map[int64]*NoteListCoordinator),
	}
}

func (s *noteListService) For(uid int64) *NoteListCoordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coords[uid]
	if !ok {
		c = NewNoteListCoordinator(uid, s.notes, s.reminders, s.logger)
		s.coords[uid] = c
	}
	return c
}
