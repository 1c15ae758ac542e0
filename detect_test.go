package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestLabelTableLogsRejectedTable(t *testing.T) {
	out := captureLog(t)

	path := filepath.Join(t.TempDir(), "cards.json")
	dup := `{"AA": {"name": "one", "command": ["true"]}, "AA": {"name": "two", "command": ["false"]}}`
	require.NoError(t, os.WriteFile(path, []byte(dup), 0644))

	table := labelTable(path)
	assert.Equal(t, 0, table.Len())
	assert.Contains(t, out.String(), "Card table:")
	assert.Contains(t, out.String(), "duplicate")
}

func TestLabelTableLoads(t *testing.T) {
	out := captureLog(t)

	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"AA": {"name": "one", "command": ["true"]}}`), 0644))

	table := labelTable(path)
	assert.Equal(t, 1, table.Len())
	assert.Empty(t, out.String())
}
