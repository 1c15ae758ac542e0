package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcplay/buttons"
	"nfcplay/reader"
)

const testConfig = `
client_id: living-room
cards: /srv/nfcplay/cards.json
reader:
  type: keyboard
  device: /dev/input/event3
  format: 10d
mqtt:
  host: broker.local
debounce:
  rearm_after: 5s
controls:
  toggle: [mpc, toggle]
  volume_up: [mpc, volume, "+5"]
buttons:
  debounce: 150ms
  pins:
    - pin: 17
      control: toggle
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nfcplay.cfg")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(writeConfig(t, testConfig), true)
	require.NoError(t, err)

	assert.Equal(t, "living-room", cfg.ClientID)
	assert.Equal(t, "/srv/nfcplay/cards.json", cfg.Cards)
	assert.Equal(t, "/srv/nfcplay/cards.json.lock", cfg.LockFile)
	assert.Equal(t, reader.Config{Type: "keyboard", Device: "/dev/input/event3", Format: "10d"}, cfg.Reader)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
	assert.Equal(t, 5*time.Second, cfg.rearmAfter())
	assert.Equal(t, []string{"mpc", "volume", "+5"}, cfg.Controls["volume_up"])
	assert.Equal(t, []buttons.Button{{Pin: 17, Control: "toggle"}}, cfg.Buttons.Buttons)
	assert.Equal(t, 150*time.Millisecond, cfg.Buttons.Debounce)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.cfg"), false)
	require.NoError(t, err)

	assert.Equal(t, "cards.json", cfg.Cards)
	assert.Equal(t, "cards.json.lock", cfg.LockFile)
	assert.Regexp(t, `^nfcplay-[0-9a-f]{8}$`, cfg.ClientID)
	assert.Equal(t, time.Duration(0), cfg.rearmAfter(), "pcsc reports removal")
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.cfg"), true)
	assert.Error(t, err)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NFCPLAY_CLIENT_ID", "kitchen")
	t.Setenv("NFCPLAY_READER_TYPE", "pipe")
	t.Setenv("NFCPLAY_READER_DEVICE", "/tmp/nfcplay-cards")
	t.Setenv("NFCPLAY_MQTT_PORT", "1884")

	cfg, err := LoadConfig(writeConfig(t, testConfig), true)
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.ClientID)
	assert.Equal(t, "pipe", cfg.Reader.Type)
	assert.Equal(t, "/tmp/nfcplay-cards", cfg.Reader.Device)
	assert.Equal(t, "10d", cfg.Reader.Format, "untouched by the environment")
	assert.Equal(t, 1884, cfg.MQTT.Port)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
}

func TestLoadConfigDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	// Restore the variable godotenv is about to set.
	t.Setenv("NFCPLAY_CARDS", "")
	require.NoError(t, os.Unsetenv("NFCPLAY_CARDS"))

	require.NoError(t, os.WriteFile(".env", []byte("NFCPLAY_CARDS=dotenv.yaml\n"), 0644))

	cfg, err := LoadConfig(writeConfig(t, testConfig), true)
	require.NoError(t, err)
	assert.Equal(t, "dotenv.yaml", cfg.Cards)
	assert.Equal(t, "dotenv.yaml.lock", cfg.LockFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad secret", Config{RemoteSecret: "not base64!"}},
		{"empty control", Config{Controls: map[string][]string{"toggle": {}}}},
		{"button without control", Config{Buttons: buttons.Config{Buttons: []buttons.Button{{Pin: 4, Control: "next"}}}}},
		{"negative rearm", Config{Debounce: DebounceConfig{RearmAfter: durationPtr(-time.Second)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}

	assert.NoError(t, (&Config{RemoteSecret: "c2VjcmV0"}).Validate())
}

func TestRearmAfter(t *testing.T) {
	cfg := &Config{Reader: reader.Config{Type: "keyboard"}}
	assert.Equal(t, defaultRearmAfter, cfg.rearmAfter())

	cfg.Debounce.RearmAfter = durationPtr(0)
	assert.Equal(t, time.Duration(0), cfg.rearmAfter(), "explicit zero means removal only")

	cfg = &Config{Reader: reader.Config{Type: "pipe"}}
	assert.Equal(t, time.Duration(0), cfg.rearmAfter())
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
