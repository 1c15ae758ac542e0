//go:build screen

package video

import (
	"fmt"
	"image"
	"log"
	"os"
	"sync"

	"github.com/d21d3q/framebuffer"
)

// ScreenSupported returns whether screen support is compiled in.
func ScreenSupported() bool {
	return true
}

// Display renders player screens onto a 16 bpp framebuffer.
type Display struct {
	mu              sync.Mutex
	painter         *Painter
	pixBuffer       []byte
	backBuffer      []byte
	rgbaImage       *image.RGBA
	width           int
	height          int
	lineLengthBytes int
	initialized     bool
}

// New opens the framebuffer named in cfg.
func New(cfg Config) (*Display, error) {
	device := cfg.Device
	if device == "" {
		device = "/dev/fb0"
	}

	fbLowLevel, err := framebuffer.OpenFrameBuffer(device, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer: %w", err)
	}

	varInfo, err := fbLowLevel.VarScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get variable screen info: %w", err)
	}
	fixedInfo, err := fbLowLevel.FixScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get fixed screen info: %w", err)
	}
	if varInfo.BitsPerPixel != 16 {
		return nil, fmt.Errorf("framebuffer %s: %d bpp not supported, need 16", device, varInfo.BitsPerPixel)
	}

	d := &Display{}
	d.pixBuffer, err = fbLowLevel.Pixels()
	if err != nil {
		return nil, fmt.Errorf("get pixel data: %w", err)
	}

	d.width = int(varInfo.XRes)
	d.height = int(varInfo.YRes)
	d.lineLengthBytes = int(fixedInfo.LineLength)
	d.backBuffer = make([]byte, d.height*d.lineLengthBytes)

	log.Printf("Video: framebuffer %dx%d, %d bpp, stride %d bytes",
		d.width, d.height, varInfo.BitsPerPixel, d.lineLengthBytes)

	d.rgbaImage = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	d.painter = NewPainter(d.rgbaImage, cfg.Font)
	d.initialized = true

	d.clear()
	return d, nil
}

func (d *Display) clear() {
	for i := range d.pixBuffer {
		d.pixBuffer[i] = 0
	}
}

func (d *Display) update() {
	packRGB565(d.rgbaImage, d.backBuffer, d.lineLengthBytes)
	copy(d.pixBuffer, d.backBuffer)
}

// draw runs fn under the lock and flushes the result to the screen.
func (d *Display) draw(fn func(p *Painter)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return
	}
	fn(d.painter)
	d.update()
}

// Idle shows the ready screen.
func (d *Display) Idle() {
	d.draw(func(p *Painter) { p.Idle() })
}

// NowPlaying shows the started card. coverPath may be empty.
func (d *Display) NowPlaying(name, uid, coverPath string) {
	var art image.Image
	if coverPath != "" {
		img, err := LoadArt(coverPath)
		if err != nil {
			log.Printf("Video: %v", err)
		} else {
			art = img
		}
	}
	d.draw(func(p *Painter) { p.NowPlaying(name, uid, art) })
}

// Unknown shows an unknown card UID.
func (d *Display) Unknown(uid string) {
	d.draw(func(p *Painter) { p.Unknown(uid) })
}

// Failed shows a card whose command did not start.
func (d *Display) Failed(name, uid string) {
	d.draw(func(p *Painter) { p.Failed(name, uid) })
}

// ConnectionLost shows the connection lost screen.
func (d *Display) ConnectionLost() {
	d.draw(func(p *Painter) { p.ConnectionLost() })
}

// Message shows one line of text.
func (d *Display) Message(text string) {
	d.draw(func(p *Painter) { p.Message(text) })
}

// Shutdown blanks the screen.
func (d *Display) Shutdown() {
	d.draw(func(p *Painter) { p.Clear() })
}

// Release blanks the framebuffer and stops drawing.
func (d *Display) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
	d.initialized = false
	return nil
}

// Width returns the display width.
func (d *Display) Width() int {
	return d.width
}

// Height returns the display height.
func (d *Display) Height() int {
	return d.height
}
