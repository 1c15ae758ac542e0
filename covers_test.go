package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCovers(t *testing.T) {
	album := filepath.Join(t.TempDir(), "Kind of Blue")
	require.NoError(t, os.Mkdir(album, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(album, "album.json"),
		[]byte(`{"artist":"Miles Davis","album":"Kind of Blue","tracks":[{"number":1,"title":"So What"}]}`), 0644))

	art := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range art.Pix {
		art.Pix[i] = 200
	}
	art.SetRGBA(0, 0, color.RGBA{20, 60, 180, 255})
	f, err := os.Create(filepath.Join(album, "cover.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, art))
	require.NoError(t, f.Close())

	outDir := filepath.Join(t.TempDir(), "out")
	var log bytes.Buffer
	front, back, err := makeCovers(album, coverOptions{outDir: outDir}, &log)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "Kind of Blue_front.png"), front)
	assert.Equal(t, filepath.Join(outDir, "Kind of Blue_back.png"), back)
	assert.Contains(t, log.String(), "cover.png")

	for _, path := range []string{front, back} {
		f, err := os.Open(path)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 614, cfg.Width)
		assert.Equal(t, 968, cfg.Height)
	}
}

func TestMakeCoversNeedsDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "album.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))

	_, _, err := makeCovers(file, coverOptions{outDir: t.TempDir()}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMakeCoversPrinterMissing(t *testing.T) {
	album := t.TempDir()
	_, _, err := makeCovers(album, coverOptions{outDir: t.TempDir(), printer: filepath.Join(album, "lp0")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMakeCoversDefaultsToAlbumDir(t *testing.T) {
	album := filepath.Join(t.TempDir(), "Blue Train")
	require.NoError(t, os.Mkdir(album, 0755))

	front, back, err := makeCovers(album, coverOptions{customURL: "https://example.org/blue-train"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(album, "Blue Train_front.png"), front)
	assert.Equal(t, filepath.Join(album, "Blue Train_back.png"), back)
	assert.FileExists(t, back)
}
