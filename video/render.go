package video

import (
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

const defaultFont = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

// Config holds video display configuration.
type Config struct {
	Device string `yaml:"device"` // framebuffer device, default /dev/fb0
	Font   string `yaml:"font"`   // TrueType font for all text
}

// Painter draws the player screens onto an RGBA image. It knows nothing
// about the framebuffer so it can render anywhere.
type Painter struct {
	dc     *gg.Context
	width  int
	height int
	font   string
}

// NewPainter returns a painter drawing into img. An empty font uses the
// DejaVu bold face; gg's built-in face is used if that cannot be loaded.
func NewPainter(img *image.RGBA, font string) *Painter {
	if font == "" {
		font = defaultFont
	}
	b := img.Bounds()
	return &Painter{
		dc:     gg.NewContextForRGBA(img),
		width:  b.Dx(),
		height: b.Dy(),
		font:   font,
	}
}

func (p *Painter) setFontSize(size int) {
	if p.font == "" {
		return
	}
	if err := p.dc.LoadFontFace(p.font, float64(size)); err != nil {
		log.Printf("Video: failed to load font: %v", err)
		// Don't retry on every draw.
		p.font = ""
	}
}

func (p *Painter) fill(r, g, b float64) {
	p.dc.SetRGB(r, g, b)
	p.dc.DrawRectangle(0, 0, float64(p.width), float64(p.height))
	p.dc.Fill()
}

func (p *Painter) drawCentered(text string, y float64, r, g, b float64) {
	p.dc.SetRGB(r, g, b)
	p.dc.DrawStringAnchored(text, float64(p.width/2), y, 0.5, 0.5)
}

// Idle shows the ready screen.
func (p *Painter) Idle() {
	p.fill(0, 0, 0.3)
	p.setFontSize(48)
	p.drawCentered("Tap a card", float64(p.height/2), 1, 1, 1)
}

// NowPlaying shows the card name, with the album art when there is some.
// art may be nil.
func (p *Painter) NowPlaying(name, uid string, art image.Image) {
	p.fill(0, 0.35, 0)

	textY := float64(p.height / 2)
	if art != nil {
		size := p.height * 2 / 3
		if size > p.width-20 {
			size = p.width - 20
		}
		thumb := fitSquare(art, size)
		p.dc.DrawImage(thumb, (p.width-size)/2, 10)
		textY = float64(size + 10 + (p.height-size-10)/2)
	}

	p.setFontSize(40)
	if name == "" {
		name = uid
	}
	p.drawCentered(name, textY, 1, 1, 1)
}

// Unknown shows a card that is not in the table, so it can be enrolled.
func (p *Painter) Unknown(uid string) {
	p.fill(0.5, 0.3, 0)
	p.setFontSize(48)
	y := float64(p.height/2) - 30
	p.drawCentered("Unknown card", y, 1, 1, 1)
	p.setFontSize(32)
	p.drawCentered(uid, y+60, 1, 1, 0)
}

// Failed shows a card whose command could not be run.
func (p *Painter) Failed(name, uid string) {
	p.fill(0.7, 0, 0)
	p.setFontSize(48)
	y := float64(p.height/2) - 30
	p.drawCentered("Cannot play", y, 1, 1, 1)
	if name == "" {
		name = uid
	}
	p.setFontSize(32)
	p.drawCentered(name, y+60, 1, 1, 1)
}

// ConnectionLost shows that the reader or broker went away.
func (p *Painter) ConnectionLost() {
	p.fill(0.5, 0.3, 0)
	p.setFontSize(48)
	p.drawCentered("Connection Lost", float64(p.height/2), 1, 1, 1)
}

// Message shows a single line, e.g. the control that was just run.
func (p *Painter) Message(text string) {
	p.fill(0, 0, 0.3)
	p.setFontSize(64)
	p.drawCentered(text, float64(p.height/2), 1, 1, 1)
}

// Clear paints the whole screen black.
func (p *Painter) Clear() {
	p.fill(0, 0, 0)
}

// LoadArt decodes a JPEG or PNG file.
func LoadArt(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open art: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode art %s: %w", path, err)
	}
	return img, nil
}

// fitSquare center-crops src to a square and scales it to size x size.
func fitSquare(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// packRGB565 converts img into the 16 bpp little-endian layout used by small
// SPI and HDMI framebuffers. stride is the framebuffer line length in bytes.
func packRGB565(img *image.RGBA, dst []byte, stride int) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r := uint16(img.Pix[i]) >> 3
			g := uint16(img.Pix[i+1]) >> 2
			bl := uint16(img.Pix[i+2]) >> 3
			fbIdx := y*stride + x*2
			if fbIdx+1 < len(dst) {
				binary.LittleEndian.PutUint16(dst[fbIdx:], (r<<11)|(g<<5)|bl)
			}
		}
	}
}
