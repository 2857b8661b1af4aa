// File: config/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-engine/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, runtime.NumCPU(), cfg.Shards)
	assert.False(t, cfg.PinCPUs)
	assert.Equal(t, 10*time.Millisecond, cfg.LowresTick)
	assert.Equal(t, 1024, cfg.MailboxCapacity)
	assert.Equal(t, uint32(100), cfg.DefaultShares)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	data := []byte(`shards: 4
pin_cpus: true
lowres_tick_ms: 5
mailbox_capacity: 256
default_shares: 50
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Shards)
	assert.True(t, cfg.PinCPUs)
	assert.Equal(t, 5*time.Millisecond, cfg.LowresTick)
	assert.Equal(t, 256, cfg.MailboxCapacity)
	assert.Equal(t, uint32(50), cfg.DefaultShares)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shards: [not a number"), 0o644))
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestNormalizeClampsInvalidValues(t *testing.T) {
	cfg := config.Config{Shards: -1, LowresTick: -time.Second, MailboxCapacity: 0, DefaultShares: 0}
	cfg.Normalize()
	assert.Equal(t, runtime.NumCPU(), cfg.Shards)
	assert.Equal(t, 10*time.Millisecond, cfg.LowresTick)
	assert.Equal(t, 1024, cfg.MailboxCapacity)
	assert.Equal(t, uint32(100), cfg.DefaultShares)
}
