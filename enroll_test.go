package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcplay/cards"
)

func TestPlayerCommand(t *testing.T) {
	cmd, err := playerCommand("moode", "moode.local", "/Rock/Live/")
	require.NoError(t, err)
	assert.Equal(t, []string{"curl", "-G", "-s", "--data-urlencode",
		"cmd=play_item NAS/Rock/Live", "http://moode.local/command/"}, cmd)

	cmd, err = playerCommand("vlc", "", "/music/Kind of Blue")
	require.NoError(t, err)
	assert.Equal(t, []string{"cvlc", "--play-and-exit", "/music/Kind of Blue"}, cmd)

	cmd, err = playerCommand("", "", "/music/Kind of Blue")
	require.NoError(t, err)
	assert.Equal(t, []string{"mpv", "--no-video", "/music/Kind of Blue"}, cmd)

	_, err = playerCommand("moode", "", "Rock")
	assert.Error(t, err)
	_, err = playerCommand("winamp", "", "Rock")
	assert.Error(t, err)
}

func TestNewEntry(t *testing.T) {
	album := filepath.Join(t.TempDir(), "Kind of Blue")
	require.NoError(t, os.Mkdir(album, 0755))

	entry, err := newEntry("mpv", "", album)
	require.NoError(t, err)
	assert.Equal(t, "Kind of Blue", entry.Name)
	assert.Equal(t, []string{"mpv", "--no-video", album}, entry.Command)

	entry, err = newEntry("moode", "moode.local", "Jazz/Kind of Blue")
	require.NoError(t, err)
	assert.Equal(t, "Kind of Blue", entry.Name)

	file := filepath.Join(album, "01.flac")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = newEntry("vlc", "", file)
	assert.Error(t, err, "local path must be a directory")

	_, err = newEntry("vlc", "", filepath.Join(album, "missing"))
	assert.Error(t, err)
}

func testCardsConfig(t *testing.T, name string) *Config {
	t.Helper()
	cfg := &Config{Cards: filepath.Join(t.TempDir(), name), ClientID: "test"}
	cfg.applyDefaults()
	return cfg
}

func TestEnrollCard(t *testing.T) {
	cfg := testCardsConfig(t, "cards.json")
	never := func(cards.Entry) (bool, error) {
		t.Fatal("confirm called for a new card")
		return false, nil
	}

	saved, err := enrollCard(cfg, cards.Entry{UID: "B2BA9C1E", Name: "Kind of Blue", Command: []string{"mpv", "/music/kob"}}, never)
	require.NoError(t, err)
	assert.True(t, saved)

	table, err := cards.Load(cfg.Cards)
	require.NoError(t, err)
	entry, ok := table.Lookup("B2BA9C1E")
	require.True(t, ok)
	assert.Equal(t, []string{"mpv", "/music/kob"}, entry.Command)

	// Existing card: a declined overwrite leaves the table alone.
	replacement := cards.Entry{UID: "B2BA9C1E", Name: "Blue Train", Command: []string{"mpv", "/music/bt"}}
	var asked cards.Entry
	saved, err = enrollCard(cfg, replacement, func(existing cards.Entry) (bool, error) {
		asked = existing
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, "Kind of Blue", asked.Name)

	saved, err = enrollCard(cfg, replacement, func(cards.Entry) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, saved)

	table, err = cards.Load(cfg.Cards)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	entry, _ = table.Lookup("B2BA9C1E")
	assert.Equal(t, "Blue Train", entry.Name)
}

func TestEnrollCardRefusesTOML(t *testing.T) {
	cfg := testCardsConfig(t, "cards.toml")
	_, err := enrollCard(cfg, cards.Entry{UID: "B2BA9C1E", Name: "x", Command: []string{"true"}}, nil)
	assert.Error(t, err)
}

func TestAskOverwrite(t *testing.T) {
	existing := cards.Entry{UID: "B2BA9C1E", Name: "Kind of Blue"}

	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		ok, err := askOverwrite(strings.NewReader(input), &out, existing)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "input %q", input)
		assert.Contains(t, out.String(), "Kind of Blue")
	}
}

type scriptedSource struct {
	uids []string
	err  error
}

func (s *scriptedSource) Read(ctx context.Context) (string, error) {
	if len(s.uids) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", context.Canceled
	}
	uid := s.uids[0]
	s.uids = s.uids[1:]
	return uid, nil
}

func TestFirstCard(t *testing.T) {
	uid, err := firstCard(context.Background(), &scriptedSource{uids: []string{"", "", "B2BA9C1E"}})
	require.NoError(t, err)
	assert.Equal(t, "B2BA9C1E", uid)

	boom := errors.New("boom")
	_, err = firstCard(context.Background(), &scriptedSource{err: boom})
	assert.ErrorIs(t, err, boom)
}
