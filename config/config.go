// File: config/config.go
// Package config holds engine configuration with YAML loading support.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors engine.yaml.
type Config struct {
	// Shards is the number of reactors. 0 means runtime.NumCPU().
	Shards int `yaml:"shards"`
	// PinCPUs pins each shard's OS thread to the matching logical CPU.
	PinCPUs bool `yaml:"pin_cpus"`
	// LowresTickMS is the coarse clock granularity in milliseconds, as
	// spelled in engine.yaml.
	LowresTickMS int `yaml:"lowres_tick_ms"`
	// LowresTick is the granularity of the coarse clock. Derived from
	// LowresTickMS when loading YAML.
	LowresTick time.Duration `yaml:"-"`
	// MailboxCapacity bounds each shard's cross-shard inbox.
	MailboxCapacity int `yaml:"mailbox_capacity"`
	// DefaultShares is the weight of the default scheduling group.
	DefaultShares uint32 `yaml:"default_shares"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Shards:          runtime.NumCPU(),
		PinCPUs:         false,
		LowresTick:      10 * time.Millisecond,
		MailboxCapacity: 1024,
		DefaultShares:   100,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps out-of-range values back to sane defaults.
func (c *Config) Normalize() {
	if c.Shards <= 0 {
		c.Shards = runtime.NumCPU()
	}
	if c.LowresTickMS > 0 {
		c.LowresTick = time.Duration(c.LowresTickMS) * time.Millisecond
	}
	if c.LowresTick <= 0 {
		c.LowresTick = 10 * time.Millisecond
	}
	if c.MailboxCapacity <= 0 {
		c.MailboxCapacity = 1024
	}
	if c.DefaultShares == 0 {
		c.DefaultShares = 100
	}
}
