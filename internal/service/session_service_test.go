package service

import (
	"context"
	"testing"

	"github.com/haierkeys/notely-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionService_OpenReplaces(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.repo, env.scheduler, SessionServiceConfig{DefaultColor: domain.ColorPink}, zap.NewNop())
	defer svc.Shutdown()

	_, err := svc.Get(testUID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	first, err := svc.Open(context.Background(), testUID, domain.NewNoteID)
	require.NoError(t, err)
	assert.Equal(t, domain.ColorPink, first.WorkingCopy().Color)

	n := env.seed(t, domain.Note{Title: "t"})
	second, err := svc.Open(context.Background(), testUID, n.ID)
	require.NoError(t, err)
	assert.True(t, first.Closed())
	assert.Equal(t, ModeEdit, second.Mode())

	got, err := svc.Get(testUID)
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, 1, svc.Count())

	assert.True(t, svc.Close(testUID))
	assert.False(t, svc.Close(testUID))
	assert.True(t, second.Closed())
	assert.Zero(t, svc.Count())
}

func TestSessionService_OpenMissingKeepsNone(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.repo, env.scheduler, SessionServiceConfig{}, zap.NewNop())
	defer svc.Shutdown()

	_, err := svc.Open(context.Background(), testUID, 999)
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)
	assert.Zero(t, svc.Count())
}

func TestNoteListService_SharedPerUser(t *testing.T) {
	env := newTestEnv(t)
	svc := NewNoteListService(env.repo, env.scheduler, zap.NewNop())
	assert.Same(t, svc.For(1), svc.For(1))
	assert.NotSame(t, svc.For(1), svc.For(2))
}
