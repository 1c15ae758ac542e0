package cover

import (
	"fmt"
	"image"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the requested edge of the back card QR code, about 13 mm. Long
// URLs can make the code larger.
const qrSize = 150

// qrImage encodes url at medium error correction without a quiet zone; the
// card background around it serves as one.
func qrImage(url string, fg, bg color.RGBA) (image.Image, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg
	q.DisableBorder = true
	return q.Image(qrSize), nil
}

// qrOrigin centers qr horizontally in the footer below the track list.
func qrOrigin(qr image.Image) image.Point {
	b := qr.Bounds()
	return image.Pt((CardWidth-b.Dx())/2, CardHeight-b.Dy()-35)
}
