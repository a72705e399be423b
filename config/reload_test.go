package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReloader(t *testing.T, yaml string) (*Reloader, string) {
	t.Helper()
	path := writeConfig(t, yaml)
	loader := NewLoader().WithConfigPath(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	r := NewReloader(loader, cfg, zap.NewNop())
	t.Cleanup(r.Stop)
	return r, path
}

// --- DiffConfig ---

func TestDiffConfig(t *testing.T) {
	oldCfg := DefaultConfig()
	newCfg := DefaultConfig()
	assert.Empty(t, DiffConfig(oldCfg, newCfg))

	newCfg.Log.Level = "debug"
	newCfg.Swarm.Consensus.Quorum = 75
	newCfg.Events.Redis.Password = "hunter2"

	changes := DiffConfig(oldCfg, newCfg)
	byPath := make(map[string]ConfigChange, len(changes))
	for _, c := range changes {
		byPath[c.Path] = c
	}
	require.Len(t, byPath, 3)

	level := byPath["Log.Level"]
	assert.False(t, level.RequiresRestart)
	assert.Equal(t, "info", level.OldValue)
	assert.Equal(t, "debug", level.NewValue)

	assert.True(t, byPath["Swarm.Consensus.Quorum"].RequiresRestart)

	secret := byPath["Events.Redis.Password"]
	assert.Nil(t, secret.OldValue)
	assert.Nil(t, secret.NewValue)
}

func TestIsHotReloadable(t *testing.T) {
	assert.True(t, IsHotReloadable("Log.Level"))
	assert.False(t, IsHotReloadable("Server.HTTPPort"))
}

// --- Reload ---

func TestReloader_ReloadAppliesValidChange(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")

	var got []ConfigChange
	r.OnReload(func(oldCfg, newCfg *Config, changes []ConfigChange) {
		assert.Equal(t, "info", oldCfg.Log.Level)
		assert.Equal(t, "debug", newCfg.Log.Level)
		got = changes
	})

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))
	changes, err := r.Reload()
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, changes, got)
	assert.Equal(t, "debug", r.Config().Log.Level)
	assert.Equal(t, 2, r.Version())
}

func TestReloader_ReloadRejectsInvalidConfig(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	called := false
	r.OnReload(func(*Config, *Config, []ConfigChange) { called = true })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0644))
	_, err := r.Reload()

	assert.ErrorContains(t, err, "unknown log level")
	assert.False(t, called)
	assert.Equal(t, "info", r.Config().Log.Level)
	assert.Equal(t, 1, r.Version())
}

func TestReloader_NoChangesNoCallback(t *testing.T) {
	r, _ := newTestReloader(t, "log:\n  level: info\n")
	called := false
	r.OnReload(func(*Config, *Config, []ConfigChange) { called = true })

	changes, err := r.Reload()
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.False(t, called)
}

func TestReloader_CallbackPanicIsContained(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	second := false
	r.OnReload(func(*Config, *Config, []ConfigChange) { panic("boom") })
	r.OnReload(func(*Config, *Config, []ConfigChange) { second = true })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0644))
	assert.NotPanics(t, func() { _, _ = r.Reload() })
	assert.True(t, second)
}

// --- Watch ---

func TestReloader_WatchReloadsOnFileChange(t *testing.T) {
	r, path := newTestReloader(t, "log:\n  level: info\n")
	levels := make(chan string, 4)
	r.OnReload(func(_, newCfg *Config, _ []ConfigChange) { levels <- newCfg.Log.Level })

	require.NoError(t, r.Watch(context.Background(),
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
	))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0644))

	select {
	case level := <-levels:
		assert.Equal(t, "error", level)
	case <-time.After(2 * time.Second):
		t.Fatal("config change was not picked up")
	}
}

func TestReloader_WatchRequiresConfigPath(t *testing.T) {
	r := NewReloader(NewLoader(), DefaultConfig(), nil)
	assert.Error(t, r.Watch(context.Background()))
}
