// Package cover renders printable album cards: a front with the cover art and
// album details, and a back with the track list.
package cover

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dhowden/tag"
)

// Track is one entry of the back card.
type Track struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// AlbumInfo is what gets printed on a card.
type AlbumInfo struct {
	Artist string   `json:"artist"`
	Album  string   `json:"album"`
	Date   string   `json:"date"`
	Label  string   `json:"label"`
	Genres []string `json:"genres"`
	Tracks []Track  `json:"tracks"`

	Cover image.Image `json:"-"`
}

// audioExts are the files whose tags describe the album.
var audioExts = map[string]bool{".mp3": true, ".flac": true, ".ogg": true, ".m4a": true, ".mp4": true}

// LoadAlbum reads the album details from the tags of the audio files under
// dir. Album-level fields come from the first file in path order; every file
// adds a track. A dir/album.json, when present, overrides whatever it sets.
// Without either the album is named after the directory.
func LoadAlbum(dir string) (*AlbumInfo, error) {
	info := &AlbumInfo{}

	files, err := audioFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		readTags(info, files)
	}

	data, err := os.ReadFile(filepath.Join(dir, "album.json"))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, info); err != nil {
			return nil, fmt.Errorf("decode album.json: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read album.json: %w", err)
	}

	if info.Album == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", dir, err)
		}
		info.Album = filepath.Base(abs)
	}
	return info, nil
}

func audioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && audioExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// readTags fills info from files. Unreadable files still count as a track
// named after the file.
func readTags(info *AlbumInfo, files []string) {
	for i, path := range files {
		m, err := readMetadata(path)
		if err != nil {
			log.Printf("Tags of %s: %v", path, err)
		}
		if i == 0 && m != nil {
			albumFields(info, m)
		}

		t := Track{Number: len(info.Tracks) + 1, Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
		if m != nil {
			if n, _ := m.Track(); n > 0 {
				t.Number = n
			}
			if title := strings.TrimSpace(m.Title()); title != "" {
				t.Title = title
			}
		}
		info.Tracks = append(info.Tracks, t)
	}
	sort.SliceStable(info.Tracks, func(i, j int) bool {
		return info.Tracks[i].Number < info.Tracks[j].Number
	})
}

func readMetadata(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tag.ReadFrom(f)
}

func albumFields(info *AlbumInfo, m tag.Metadata) {
	info.Artist = strings.TrimSpace(m.Artist())
	if info.Artist == "" {
		info.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	info.Album = strings.TrimSpace(m.Album())
	if y := m.Year(); y > 0 {
		info.Date = strconv.Itoa(y)
	}
	info.Label = rawText(m, "TPUB", "TPB", "label", "publisher", "organization")
	for _, g := range strings.Split(m.Genre(), ",") {
		if g = strings.TrimSpace(g); g != "" {
			info.Genres = append(info.Genres, g)
		}
	}
}

// rawText returns the first non-empty text frame or comment among names.
func rawText(m tag.Metadata, names ...string) string {
	raw := m.Raw()
	for _, name := range names {
		for _, key := range []string{name, strings.ToUpper(name)} {
			if s, ok := raw[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// FileName returns a name safe for output files, e.g. "Kind of Blue".
func (a *AlbumInfo) FileName() string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, a.Album)
	name = strings.TrimRight(name, " ")
	if name == "" {
		return "album"
	}
	return name
}
