package cover

import (
	"fmt"
	"image"
	"log"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
)

// Card geometry at 300 DPI.
const (
	DPI        = 300
	CardWidth  = 614 // 52 mm
	CardHeight = 968 // 82 mm
	CoverSize  = 602 // 51 mm
)

var fontCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

// Fonts holds the faces used on the cards. A nil face leaves gg's built-in
// face in place.
type Fonts struct {
	title, artist, info, track font.Face
	coverTitle, coverArtist    font.Face
}

// LoadFonts loads the faces from custom, or the first system font that works.
func LoadFonts(custom string) *Fonts {
	paths := fontCandidates
	if custom != "" {
		paths = append([]string{custom}, paths...)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f, err := loadFonts(path)
		if err != nil {
			log.Printf("Cover: font %s: %v", path, err)
			continue
		}
		return f
	}
	log.Printf("Cover: no TrueType font found, using the built-in face")
	return &Fonts{}
}

func loadFonts(path string) (*Fonts, error) {
	f := &Fonts{}
	for _, face := range []struct {
		dst    *font.Face
		points float64
	}{
		{&f.title, 64},
		{&f.artist, 56},
		{&f.info, 40},
		{&f.track, 36},
		{&f.coverTitle, 40},
		{&f.coverArtist, 30},
	} {
		ff, err := gg.LoadFontFace(path, face.points)
		if err != nil {
			return nil, fmt.Errorf("load face: %w", err)
		}
		*face.dst = ff
	}
	return f, nil
}

func (f *Fonts) use(dc *gg.Context, face font.Face) {
	if f != nil && face != nil {
		dc.SetFontFace(face)
	}
}

// Renderer draws the two sides of an album card.
type Renderer struct {
	Fonts *Fonts
}

// NewRenderer returns a renderer using the given TrueType font if set.
func NewRenderer(customFont string) *Renderer {
	return &Renderer{Fonts: LoadFonts(customFont)}
}

// coverArt returns the album art, drawing a default cover when there is none.
func (r *Renderer) coverArt(info *AlbumInfo) image.Image {
	if info.Cover != nil {
		return info.Cover
	}
	return DefaultCover(info, r.Fonts)
}

// RenderFront draws the cover, a frame around it and the album details.
func (r *Renderer) RenderFront(info *AlbumInfo) image.Image {
	art := r.coverArt(info)
	pal := NewPalette(art)

	dc := gg.NewContext(CardWidth, CardHeight)
	dc.SetColor(pal.Background)
	dc.Clear()

	coverX := (CardWidth - CoverSize) / 2
	coverY := 10
	scaled := image.NewRGBA(image.Rect(0, 0, CoverSize, CoverSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), art, art.Bounds(), draw.Src, nil)
	dc.DrawImage(scaled, coverX, coverY)

	dc.SetColor(BorderColor(pal.Background))
	dc.SetLineWidth(3)
	dc.DrawRectangle(float64(coverX-2), float64(coverY-2), float64(CoverSize+4), float64(CoverSize+4))
	dc.Stroke()

	const margin = 15
	maxWidth := float64(CardWidth - 2*margin)
	y := float64(coverY + CoverSize + 20)

	if info.Album != "" {
		r.Fonts.use(dc, r.Fonts.title)
		dc.SetColor(pal.TextPrimary)
		for _, line := range wrapText(dc, info.Album, maxWidth) {
			dc.DrawStringAnchored(line, margin, y, 0, 1)
			y += 70
		}
	}
	y += 20

	if info.Artist != "" {
		r.Fonts.use(dc, r.Fonts.artist)
		dc.SetColor(pal.TextSecondary)
		for _, line := range wrapText(dc, info.Artist, maxWidth) {
			dc.DrawStringAnchored(line, margin, y, 0, 1)
			y += 60
		}
	}
	y += 30

	r.Fonts.use(dc, r.Fonts.info)
	dc.SetColor(pal.TextSecondary)
	var details []string
	if len(info.Genres) > 0 {
		genres := info.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}
		details = append(details, "Genres: "+strings.Join(genres, " • "))
	}
	if info.Label != "" {
		details = append(details, "Label: "+info.Label)
	}
	if info.Date != "" {
		details = append(details, "Date: "+info.Date)
	}
	for _, d := range details {
		for _, line := range wrapText(dc, d, maxWidth) {
			dc.DrawStringAnchored(line, margin, y, 0, 1)
			y += 50
		}
	}

	drawCardBorder(dc, pal)
	return dc.Image()
}

// maxTracks is how many track lines fit on the back card.
func maxTracks() int {
	const (
		top         = 45
		footer      = 200
		trackHeight = 50
	)
	n := (CardHeight - top - footer) / trackHeight
	if n < 1 {
		n = 1
	}
	return n
}

// RenderBack draws the numbered track list and, for a non-empty url, a QR
// code in the footer.
func (r *Renderer) RenderBack(info *AlbumInfo, url string) image.Image {
	pal := NewPalette(r.coverArt(info))

	dc := gg.NewContext(CardWidth, CardHeight)
	dc.SetColor(pal.Background)
	dc.Clear()

	const (
		margin      = 25
		numColWidth = 70
		trackHeight = 50
	)
	y := float64(margin + 20)
	titleX := float64(margin + numColWidth)
	maxTitle := float64(CardWidth) - titleX - margin

	r.Fonts.use(dc, r.Fonts.track)
	tracks := info.Tracks
	if len(tracks) > maxTracks() {
		tracks = tracks[:maxTracks()]
	}
	for _, t := range tracks {
		dc.SetColor(pal.TextSecondary)
		dc.DrawStringAnchored(fmt.Sprintf("%02d.", t.Number), margin, y, 0, 1)
		dc.SetColor(pal.TextPrimary)
		dc.DrawStringAnchored(truncateText(dc, t.Title, maxTitle), titleX, y, 0, 1)
		y += trackHeight
	}

	if url != "" {
		qr, err := qrImage(url, pal.QR, pal.Background)
		if err == nil {
			at := qrOrigin(qr)
			dst := dc.Image().(*image.RGBA)
			draw.Draw(dst, qr.Bounds().Sub(qr.Bounds().Min).Add(at), qr, qr.Bounds().Min, draw.Src)
		} else {
			log.Printf("Back card: %v, printing the URL instead", err)
			r.Fonts.use(dc, r.Fonts.info)
			dc.SetColor(pal.TextSecondary)
			dc.DrawStringAnchored(truncateText(dc, url, float64(CardWidth-2*margin)),
				float64(CardWidth)/2, float64(CardHeight-100), 0.5, 0.5)
		}
	}

	drawCardBorder(dc, pal)
	return dc.Image()
}

func drawCardBorder(dc *gg.Context, pal Palette) {
	dc.SetColor(pal.Border)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, float64(CardWidth-2), float64(CardHeight-2))
	dc.Stroke()
}

// wrapText splits text on spaces into lines no wider than maxWidth. A single
// word wider than maxWidth gets a line of its own.
func wrapText(dc *gg.Context, text string, maxWidth float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if w, _ := dc.MeasureString(candidate); w <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// truncateText shortens text with "..." until it fits maxWidth.
func truncateText(dc *gg.Context, text string, maxWidth float64) string {
	if w, _ := dc.MeasureString(text); w <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes); n > 0; n-- {
		s := string(runes[:n]) + "..."
		if w, _ := dc.MeasureString(s); w <= maxWidth {
			return s
		}
	}
	return "..."
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
