package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"nfcplay/buttons"
	"nfcplay/hotplug"
	"nfcplay/indicator"
	"nfcplay/mqtt"
	"nfcplay/reader"
	"nfcplay/rotary"
)

const (
	defaultConfigFile = "nfcplay.cfg"
	defaultCardsFile  = "cards.json"
	defaultRearmAfter = 3 * time.Second
	envPrefix         = "NFCPLAY_"
)

// Config is the main configuration structure for nfcplay.
type Config struct {
	// Reader configuration
	Reader reader.Config `yaml:"reader" envPrefix:"READER_"`

	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt" envPrefix:"MQTT_"`

	// Indicator configuration
	Indicator indicator.Config `yaml:"indicator"`

	// Local controls
	Rotary   rotary.Config       `yaml:"rotary"`
	Buttons  buttons.Config      `yaml:"buttons"`
	Controls map[string][]string `yaml:"controls"`

	// Reader unplug detection
	Hotplug hotplug.Config `yaml:"hotplug"`

	Debounce DebounceConfig `yaml:"debounce"`
	Player   PlayerConfig   `yaml:"player"`

	// General settings
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	Cards        string `yaml:"cards" env:"CARDS"`
	LockFile     string `yaml:"lock_file"`
	WorkDir      string `yaml:"work_dir"`
	RemoteSecret string `yaml:"remote_secret" env:"REMOTE_SECRET"`
}

// DebounceConfig controls when a card left on the reader may fire again.
type DebounceConfig struct {
	// RearmAfter is the quiet period after which the same UID triggers again.
	// Unset means 0 for readers that report removal and 3s for the others.
	RearmAfter *time.Duration `yaml:"rearm_after"`
}

// PlayerConfig holds the defaults used by enroll.
type PlayerConfig struct {
	Type string `yaml:"type"` // "moode", "vlc", "mpv"
	Host string `yaml:"host"` // moode host name
}

// LoadConfig reads the YAML config at path, applies .env and environment
// overrides, then fills in defaults. A missing file is only an error when
// required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cards == "" {
		c.Cards = defaultCardsFile
	}
	if c.LockFile == "" {
		c.LockFile = c.Cards + ".lock"
	}
	if c.ClientID == "" {
		c.ClientID = "nfcplay-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
}

// Validate checks settings that would otherwise only fail at first use.
func (c *Config) Validate() error {
	if c.RemoteSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(c.RemoteSecret)
		if err != nil {
			return fmt.Errorf("remote_secret: invalid base64: %w", err)
		}
		if len(secret) == 0 {
			return errors.New("remote_secret: empty after decoding")
		}
	}
	for name, tokens := range c.Controls {
		if len(tokens) == 0 || tokens[0] == "" {
			return fmt.Errorf("control %q: empty command", name)
		}
	}
	for _, b := range c.Buttons.Buttons {
		if _, ok := c.Controls[b.Control]; !ok {
			return fmt.Errorf("button on pin %d: no control named %q", b.Pin, b.Control)
		}
	}
	if c.Debounce.RearmAfter != nil && *c.Debounce.RearmAfter < 0 {
		return fmt.Errorf("debounce.rearm_after: negative duration %s", *c.Debounce.RearmAfter)
	}
	return nil
}

// rearmAfter resolves the debounce quiet period for the configured reader.
func (c *Config) rearmAfter() time.Duration {
	if c.Debounce.RearmAfter != nil {
		return *c.Debounce.RearmAfter
	}
	if c.Reader.ReportsRemoval() {
		return 0
	}
	return defaultRearmAfter
}

// runLockFile guards against two daemons polling the same table.
func (c *Config) runLockFile() string {
	return c.LockFile + ".run"
}
