package config

import (
	"testing"
	"time"

	"github.com/BaSui01/swarmflow/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, swarm.Config{}, cfg.Swarm)
	assert.NotEqual(t, EventsConfig{}, cfg.Events)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.Empty(t, cfg.BootstrapAgents)
}

func TestDefaultConfig_SwarmDefaults(t *testing.T) {
	cfg := DefaultConfig().Swarm
	assert.Equal(t, swarm.DefaultConfig(), cfg)
	assert.True(t, cfg.EnableCommunication)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckInterval)
	assert.Equal(t, 60*time.Second, cfg.AgentStaleTimeout)
	assert.Equal(t, 80, cfg.MaxAgentLoad)
	assert.Equal(t, 3, cfg.Consensus.MinParticipants)
	assert.InDelta(t, 51.0, cfg.Consensus.Quorum, 0.001)
	assert.Equal(t, 100, cfg.Fabric.ChannelBuffer)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, 15*time.Second, cfg.StatsInterval)
}

func TestDefaultEventsConfig(t *testing.T) {
	cfg := DefaultEventsConfig()
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "swarmflow:events", cfg.Redis.Channel)
	assert.Equal(t, 64, cfg.StreamBuffer)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "swarmd", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}
