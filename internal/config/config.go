// Package config loads the controller configuration from a single YAML file
// and exposes it as an immutable snapshot.  Components never read the file
// themselves: they hold a *Store and take a fresh snapshot per operation, so
// a hot reload takes effect atomically and immediately, including for
// commands that were scheduled before the whitelist changed.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is one immutable view of the configuration.  Fields are only
// written during Load; after that the snapshot is shared read-only.
type Snapshot struct {
	AuthorizedOperators []int64        `yaml:"authorized_operators"`
	CommandsWhitelist   []string       `yaml:"commands_whitelist"`
	GPIOPins            map[int]string `yaml:"gpio_pins"`

	DBPath   string `yaml:"db_path"`
	MediaDir string `yaml:"media_dir"`

	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`
	MaxOutputBytes        int `yaml:"max_output_bytes"`
	MotionCooldownSeconds int `yaml:"motion_cooldown_seconds"`
	SchedulerTickSeconds  int `yaml:"scheduler_tick_seconds"`

	RebootCommand string `yaml:"reboot_command"`

	operators map[int64]struct{}
	whitelist map[string]struct{}
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := snap.finalize(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &snap, nil
}

// NewSnapshot builds a snapshot from explicit values, applying the same
// defaults and validation as Load.  Useful for tests and embedders that do
// not read a file.
func NewSnapshot(s Snapshot) (*Snapshot, error) {
	if err := s.finalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

// finalize applies defaults, validates, and builds the lookup sets.
func (s *Snapshot) finalize() error {
	if len(s.AuthorizedOperators) == 0 {
		return fmt.Errorf("authorized_operators must not be empty")
	}
	if s.DBPath == "" {
		s.DBPath = "./data/centinela.db"
	}
	if s.MediaDir == "" {
		s.MediaDir = "./media"
	}
	if s.CommandTimeoutSeconds <= 0 {
		s.CommandTimeoutSeconds = 30
	}
	if s.MaxOutputBytes <= 0 {
		s.MaxOutputBytes = 64 * 1024
	}
	if s.MotionCooldownSeconds <= 0 {
		s.MotionCooldownSeconds = 30
	}
	if s.SchedulerTickSeconds <= 0 {
		s.SchedulerTickSeconds = 60
	}
	if s.RebootCommand == "" {
		s.RebootCommand = "sudo reboot"
	}

	s.operators = make(map[int64]struct{}, len(s.AuthorizedOperators))
	for _, id := range s.AuthorizedOperators {
		s.operators[id] = struct{}{}
	}
	s.whitelist = make(map[string]struct{}, len(s.CommandsWhitelist))
	for _, c := range s.CommandsWhitelist {
		if c != "" {
			s.whitelist[c] = struct{}{}
		}
	}
	return nil
}

// IsOperator reports whether id is in the authorized operator set.
func (s *Snapshot) IsOperator(id int64) bool {
	_, ok := s.operators[id]
	return ok
}

// CommandAllowed reports whether command is a verbatim whitelist entry.
// Matching is exact string equality, arguments included: "df -h" in the
// whitelist does not permit "df -h /".
func (s *Snapshot) CommandAllowed(command string) bool {
	_, ok := s.whitelist[command]
	return ok
}

// PinLabel returns the configured label for a GPIO pin, if the pin is known.
func (s *Snapshot) PinLabel(pin int) (string, bool) {
	label, ok := s.GPIOPins[pin]
	return label, ok
}

func (s *Snapshot) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutSeconds) * time.Second
}

func (s *Snapshot) MotionCooldown() time.Duration {
	return time.Duration(s.MotionCooldownSeconds) * time.Second
}

func (s *Snapshot) TickInterval() time.Duration {
	return time.Duration(s.SchedulerTickSeconds) * time.Second
}

// Store holds the current snapshot and swaps it atomically on reload.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewStore(snap *Snapshot) *Store {
	return &Store{snap: snap}
}

// Snapshot returns the current configuration.  The returned value must be
// treated as read-only.
func (st *Store) Snapshot() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}

// Swap replaces the current snapshot.
func (st *Store) Swap(snap *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.snap = snap
}
