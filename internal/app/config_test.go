package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig([]byte("server:\n  http-port: \":8080\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.HttpPort)
	assert.Equal(t, "sqlite", c.Database.Type)
	assert.True(t, c.Database.AutoMigrate)
	assert.Equal(t, 365*24*time.Hour, c.GetTokenExpiry())
	assert.Equal(t, 10*time.Minute, c.GetSweepInterval())
	assert.Equal(t, domain.ColorWhite, c.GetDefaultColor())
	assert.Equal(t, 465, c.Reminder.Mail.Port)

	wq := c.GetWriteQueueConfig()
	assert.Equal(t, 30*time.Second, wq.WriteTimeout)
	assert.Equal(t, 10*time.Minute, wq.IdleTimeout)
}

func TestParseConfig_Overrides(t *testing.T) {
	c, err := ParseConfig([]byte(`
app:
  default-color: teal
  worker-pool-max-workers: 4
reminder:
  sweep-interval: 1h
  fire-timeout: 5s
security:
  token-expiry: 7d
`))
	require.NoError(t, err)

	assert.Equal(t, domain.ColorTeal, c.GetDefaultColor())
	assert.Equal(t, 4, c.GetWorkerPoolConfig().MaxWorkers)
	assert.Equal(t, time.Hour, c.GetSweepInterval())
	assert.Equal(t, 7*24*time.Hour, c.GetTokenExpiry())

	svc := c.GetServiceConfig()
	assert.Equal(t, domain.ColorTeal, svc.Session.DefaultColor)
	assert.Equal(t, 5*time.Second, svc.Reminder.FireTimeout)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("server: [unterminated"))
	assert.Error(t, err)
}

func TestLoadConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  default-color: red\n"), 0644))

	c, realpath, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, realpath)
	assert.Equal(t, domain.ColorRed, c.GetDefaultColor())

	c.App.DefaultColor = "blue"
	require.NoError(t, c.Save())

	again, _, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ColorBlue, again.GetDefaultColor())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
