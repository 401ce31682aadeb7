package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/traffic-sim/internal/models"
	"github.com/ukydev/traffic-sim/internal/roadnet"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.InDelta(t, 0.1, cfg.Delta, 1e-9)
	assert.Equal(t, 10, cfg.FleetSize)
	assert.Equal(t, uint64(1), cfg.Seed)
	assert.Equal(t, "grid", cfg.NetworkBuiltin)
	assert.Equal(t, roadnet.DefaultSettings(), cfg.Network)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, models.RoleViewer, cfg.Operator.Role)
	assert.Equal(t, []string{SinkLog}, cfg.Sinks)
	assert.Equal(t, "traffic/vehicles", cfg.MQTTTopic)

	opts := cfg.SimOptions()
	assert.Equal(t, 5.0, opts.Speed)
	assert.Equal(t, 1.0, opts.Radius)
	assert.Equal(t, 200, opts.StallThreshold)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SIM_TICK_MS", "250")
	t.Setenv("FLEET_SIZE", "3")
	t.Setenv("SIM_SPEED", "8.5")
	t.Setenv("NETWORK_BUILTIN", "ring")
	t.Setenv("INTERSECTION_INTERACTION_DISTANCE", "3")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("OPERATOR_USERNAME", "ops")
	t.Setenv("OPERATOR_ROLE", "operator")
	t.Setenv("SINKS", " log, MQTT ,log")
	t.Setenv("MQTT_BROKER", "tcp://localhost:1883")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.InDelta(t, 0.25, cfg.Delta, 1e-9)
	assert.Equal(t, 3, cfg.FleetSize)
	assert.Equal(t, 8.5, cfg.Speed)
	assert.Equal(t, "ring", cfg.NetworkBuiltin)
	assert.Equal(t, 3.0, cfg.Network.InteractionDistance)
	assert.Equal(t, time.Hour, cfg.JWTExpiry)
	assert.Equal(t, models.RoleOperator, cfg.Operator.Role)
	assert.Equal(t, []string{SinkLog, SinkMQTT}, cfg.Sinks)
	assert.True(t, cfg.HasSink(SinkMQTT))
	assert.False(t, cfg.HasSink(SinkMongo))
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("FLEET_SIZE", "many")
	t.Setenv("SIM_SPEED", "fast")
	t.Setenv("JWT_EXPIRY", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.FleetSize)
	assert.Equal(t, 5.0, cfg.Speed)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"traversal factor out of range", map[string]string{"ENTRANCE_TRAVERSAL_FACTOR": "1.5"}},
		{"non-positive sample distance", map[string]string{"SAMPLE_DISTANCE": "0"}},
		{"negative fleet", map[string]string{"FLEET_SIZE": "-1"}},
		{"unknown sink", map[string]string{"SINKS": "log,kafka"}},
		{"mongo sink without uri", map[string]string{"SINKS": "mongo"}},
		{"invalid role", map[string]string{"OPERATOR_USERNAME": "ops", "OPERATOR_ROLE": "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MQTT_TOPIC=from/dotenv\n"), 0o600))
	t.Setenv("MQTT_TOPIC", "")
	require.NoError(t, os.Unsetenv("MQTT_TOPIC"))

	LoadDotEnv(path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from/dotenv", cfg.MQTTTopic)

	// A missing file is not an error.
	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	require.NoError(t, Config{LogLevel: "debug", LogFormat: "json"}.ConfigureLogging())
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, Config{LogLevel: "loud"}.ConfigureLogging())
	assert.Error(t, Config{LogLevel: "info", LogFormat: "xml"}.ConfigureLogging())
}
