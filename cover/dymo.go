package cover

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
)

// LabelWriter raster commands.
const (
	esc          = 27
	syncLine     = 0x16
	cmdBytesLine = 'D'
	cmdLabelLen  = 'L'
	cmdFormFeed  = 'E'
)

// Encode writes img as a Dymo LabelWriter raster job: one print line per
// image row, eight pixels per byte with the leftmost pixel in the high bit.
// A pixel prints when it is darker than mid grey.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bpl := (b.Dx() + 7) / 8
	lines := b.Dy()
	if bpl > 255 {
		return fmt.Errorf("image too wide for label: %d px", b.Dx())
	}

	bw := bufio.NewWriter(w)
	bw.Write([]byte{esc, cmdBytesLine, byte(bpl)})
	bw.Write([]byte{esc, cmdLabelLen, byte(lines >> 8), byte(lines)})

	row := make([]byte, bpl)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for i := range row {
			row[i] = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if dark(img, x, y) {
				col := x - b.Min.X
				row[col/8] |= 0x80 >> (col % 8)
			}
		}
		bw.WriteByte(syncLine)
		bw.Write(row)
	}
	bw.Write([]byte{esc, cmdFormFeed})
	return bw.Flush()
}

func dark(img image.Image, x, y int) bool {
	r, g, b, a := img.At(x, y).RGBA()
	if a < 0x8000 {
		return false
	}
	lum := (299*r + 587*g + 114*b) / 1000
	return lum <= 0x8000
}

// Print sends img to the LabelWriter at device, e.g. /dev/usb/lp0.
func Print(img image.Image, device string) error {
	f, err := os.OpenFile(device, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open printer: %w", err)
	}
	defer f.Close()

	if err := Encode(f, img); err != nil {
		return fmt.Errorf("print label: %w", err)
	}
	return nil
}
