package cover

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	coverNames      = []string{"cover", "folder", "front", "album"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff"}
)

// FindLocalCover returns the album art in dir: cover, folder, front or album
// with an image extension first, then any image. Empty when there is none.
func FindLocalCover(dir string) string {
	for _, name := range coverNames {
		for _, ext := range imageExtensions {
			path := filepath.Join(dir, name+ext)
			if st, err := os.Stat(path); err == nil && !st.IsDir() {
				return path
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range imageExtensions {
			if ext == want {
				images = append(images, e.Name())
				break
			}
		}
	}
	if len(images) == 0 {
		return ""
	}
	sort.Strings(images)
	return filepath.Join(dir, images[0])
}

// LoadImage decodes any image format registered in this package.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

var defaultBases = []color.RGBA{
	{45, 55, 72, 255},
	{68, 51, 122, 255},
	{31, 81, 89, 255},
	{120, 53, 15, 255},
	{74, 29, 30, 255},
	{45, 74, 60, 255},
}

// defaultBase picks a base colour from the album name, so the same album
// always gets the same cover.
func defaultBase(album string) color.RGBA {
	if album == "" {
		album = "default"
	}
	sum := 0
	for _, r := range album {
		sum += int(r)
	}
	return defaultBases[sum%len(defaultBases)]
}

// DefaultCover draws a cover for albums without art: a vertical gradient,
// concentric circles, and the album and artist in capitals.
func DefaultCover(info *AlbumInfo, fonts *Fonts) image.Image {
	const size = 500
	base := defaultBase(info.Album)

	dc := gg.NewContext(size, size)
	for y := 0; y < size; y++ {
		shift := float64(y)/size*30 - 15
		dc.SetColor(color.RGBA{shiftChannel(base.R, shift), shiftChannel(base.G, shift), shiftChannel(base.B, shift), 255})
		dc.DrawLine(0, float64(y), size, float64(y))
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	dc.SetColor(lighten(base, 20))
	dc.SetLineWidth(2)
	for radius := 50; radius < 200; radius += 40 {
		dc.DrawCircle(size/2, size/2, float64(radius))
		dc.Stroke()
	}

	text := ContrastColor(base)
	shadow := color.RGBA{text.R / 3, text.G / 3, text.B / 3, 255}

	album := strings.ToUpper(info.Album)
	if album == "" {
		album = "ALBUM"
	}
	artist := strings.ToUpper(info.Artist)
	if artist == "" {
		artist = "ARTIST"
	}

	y := float64(size) * 0.7
	fonts.use(dc, fonts.coverTitle)
	dc.SetColor(shadow)
	dc.DrawStringAnchored(album, size/2+2, y+2, 0.5, 1)
	dc.SetColor(text)
	dc.DrawStringAnchored(album, size/2, y, 0.5, 1)

	y += 50
	fonts.use(dc, fonts.coverArtist)
	dc.SetColor(shadow)
	dc.DrawStringAnchored(artist, size/2+1, y+1, 0.5, 1)
	dc.SetColor(text)
	dc.DrawStringAnchored(artist, size/2, y, 0.5, 1)

	return dc.Image()
}

func shiftChannel(c uint8, shift float64) uint8 {
	return clamp(float64(c) + shift)
}

func lighten(c color.RGBA, by int) color.RGBA {
	return color.RGBA{clamp(float64(int(c.R) + by)), clamp(float64(int(c.G) + by)), clamp(float64(int(c.B) + by)), 255}
}
