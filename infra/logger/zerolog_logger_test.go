package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"vehicle_id": "d1"})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerStructuredFields(t *testing.T) {
	require.NoError(t, Configure(Config{Level: "debug", Format: "json"}))
	t.Cleanup(func() {
		format = ""
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, "engine")
	l.Infow("mission started", map[string]any{"vehicle_id": "d1", "waypoints": 12})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "d1", line["vehicle_id"])
	assert.Equal(t, float64(12), line["waypoints"])
	assert.Equal(t, "mission started", line["message"])
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Error(t, Config{Level: "loud"}.Validate())
	assert.Error(t, Config{Level: "info", Format: "xml"}.Validate())
}

func TestConfigureRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "skyfleet.log")
	require.NoError(t, Configure(Config{Level: "info", Format: "json", File: path}))
	t.Cleanup(func() {
		require.NoError(t, Configure(Config{Level: "trace"}))
		format = ""
	})

	NewZerologLogger("engine").Infow("mission completed", map[string]any{"vehicle_id": "d2"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "d2", line["vehicle_id"])
	assert.Equal(t, "engine", line["component"])
}

func TestConfigRotationDefaults(t *testing.T) {
	cfg := Config{File: "/tmp/x.log"}
	cfg.SetDefaults()
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.Equal(t, 14, cfg.MaxAgeDays)
	assert.Error(t, Config{Level: "info", MaxBackups: -1}.Validate())
}
