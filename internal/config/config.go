// Package config holds node configuration: compiled-in defaults per role
// plus an optional YAML overlay for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/vassu-v/D-LiFi-Proto/internal/mesh"
)

// Role names accepted in config files and on the CLI.
const (
	RoleHQ   = "hq"
	RoleLamp = "lamp"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"'`))
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full parameter set for one node.
type Config struct {
	NodeID string   `yaml:"node_id"`
	Role   string   `yaml:"role"`
	HQIDs  []string `yaml:"hq_ids"`

	CacheSize         int   `yaml:"cache_size"`
	GradientTolerance uint8 `yaml:"gradient_tolerance"`

	RetransmitCount    int      `yaml:"retransmit_count"`
	RetransmitInterval Duration `yaml:"retransmit_interval"`
	RedundancyWindow   Duration `yaml:"redundancy_window"`

	IRCharGap        Duration `yaml:"ir_char_gap"`
	IRSegmentGap     Duration `yaml:"ir_segment_gap"`
	IRDirectionGap   Duration `yaml:"ir_direction_gap"`
	IRMessageTimeout Duration `yaml:"ir_message_timeout"`

	LiFiRebroadcastInterval Duration `yaml:"lifi_rebroadcast_interval"`
	SOSCooldown             Duration `yaml:"sos_cooldown"`

	BridgeListen    string `yaml:"bridge_listen"`    // HQ host bridge address
	DashboardListen string `yaml:"dashboard_listen"` // HQ WebSocket mirror address
	SerialDevice    string `yaml:"serial_device"`    // IR head UART, empty = loopback
	SerialBaud      int    `yaml:"serial_baud"`
}

// DefaultLamp returns the production lamp configuration for the given id.
func DefaultLamp(id string) Config {
	return Config{
		NodeID:                  id,
		Role:                    RoleLamp,
		HQIDs:                   []string{"000h"},
		CacheSize:               mesh.LampCacheSize,
		GradientTolerance:       1,
		RetransmitCount:         2,
		RetransmitInterval:      Duration(10 * time.Second),
		RedundancyWindow:        Duration(60 * time.Second),
		IRCharGap:               Duration(100 * time.Millisecond),
		IRSegmentGap:            Duration(50 * time.Millisecond),
		IRDirectionGap:          Duration(100 * time.Millisecond),
		IRMessageTimeout:        Duration(3 * time.Second),
		LiFiRebroadcastInterval: Duration(60 * time.Second),
		SOSCooldown:             Duration(180 * time.Second),
		SerialBaud:              115200,
	}
}

// DefaultHQ returns the production HQ configuration for the given id.
func DefaultHQ(id string) Config {
	c := DefaultLamp(id)
	c.Role = RoleHQ
	c.HQIDs = []string{id}
	c.CacheSize = mesh.HQCacheSize
	c.BridgeListen = "127.0.0.1:7410"
	c.DashboardListen = "127.0.0.1:7411"
	return c
}

// Load overlays the YAML file at path onto base. Absent keys keep their
// base values.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the protocol depends on.
func (c Config) Validate() error {
	if len(c.NodeID) != mesh.IDLen {
		return fmt.Errorf("node id must be %d chars, got %q", mesh.IDLen, c.NodeID)
	}
	if c.Role != RoleHQ && c.Role != RoleLamp {
		return fmt.Errorf("role must be %q or %q, got %q", RoleHQ, RoleLamp, c.Role)
	}
	if len(c.HQIDs) == 0 {
		return fmt.Errorf("at least one hq id is required")
	}
	for _, id := range c.HQIDs {
		if len(id) != mesh.IDLen {
			return fmt.Errorf("hq id must be %d chars, got %q", mesh.IDLen, id)
		}
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.RetransmitCount < 1 {
		return fmt.Errorf("retransmit count must be at least 1")
	}
	return nil
}

// MeshRole maps the config role name onto the engine's role type.
func (c Config) MeshRole() mesh.Role {
	if c.Role == RoleHQ {
		return mesh.RoleHQ
	}
	return mesh.RoleLamp
}
