package cover

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

// Palette is the set of colours a card is drawn with.
type Palette struct {
	Background    color.RGBA
	TextPrimary   color.RGBA
	TextSecondary color.RGBA
	Border        color.RGBA
	QR            color.RGBA // QR modules, drawn on Background
}

var fallbackColor = color.RGBA{80, 80, 80, 255}

// NewPalette derives a palette from the cover art. A nil cover gives a grey
// card.
func NewPalette(cover image.Image) Palette {
	bg := fallbackColor
	if cover != nil {
		bg = Enhance(DominantColor(cover), 1.2)
	}
	return Palette{
		Background:    bg,
		TextPrimary:   ContrastColor(bg),
		TextSecondary: SecondaryColor(bg),
		Border:        BorderColor(bg),
		QR:            QRColor(bg),
	}
}

// DominantColor returns the most common colour of img that is neither near
// black, near white nor a washed out grey. Colours are grouped in steps of 10
// per channel. When no colour qualifies the mean colour is used.
func DominantColor(img image.Image) color.RGBA {
	if img.Bounds().Empty() {
		return fallbackColor
	}

	small := image.NewRGBA(image.Rect(0, 0, 150, 150))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	type bucket struct {
		c     color.RGBA
		count int
		first int
	}
	counts := make(map[color.RGBA]*bucket)
	var sumR, sumG, sumB, n int

	pix := small.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		sumR += r
		sumG += g
		sumB += b
		n++

		key := color.RGBA{uint8(r / 10 * 10), uint8(g / 10 * 10), uint8(b / 10 * 10), 255}
		if bk, ok := counts[key]; ok {
			bk.count++
		} else {
			counts[key] = &bucket{c: key, count: 1, first: n}
		}
	}

	buckets := make([]*bucket, 0, len(counts))
	for _, bk := range counts {
		buckets = append(buckets, bk)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].count != buckets[j].count {
			return buckets[i].count > buckets[j].count
		}
		return buckets[i].first < buckets[j].first
	})
	if len(buckets) > 20 {
		buckets = buckets[:20]
	}

	for _, bk := range buckets {
		r, g, b := float64(bk.c.R), float64(bk.c.G), float64(bk.c.B)
		brightness := (r + g + b) / 3
		if brightness <= 20 || brightness >= 235 {
			continue
		}
		maxV := math.Max(r, math.Max(g, b))
		minV := math.Min(r, math.Min(g, b))
		saturation := 0.0
		if maxV > 0 {
			saturation = (maxV - minV) / maxV
		}
		// Dark colours are fine even when grey.
		if saturation > 0.1 || brightness < 100 {
			return bk.c
		}
	}

	return color.RGBA{uint8(sumR / n), uint8(sumG / n), uint8(sumB / n), 255}
}

func luminance(c color.RGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// ContrastColor returns dark text for light backgrounds and light text for
// dark ones.
func ContrastColor(bg color.RGBA) color.RGBA {
	if luminance(bg) > 0.5 {
		return color.RGBA{40, 40, 40, 255}
	}
	return color.RGBA{240, 240, 240, 255}
}

// QRColor returns the module colour for a QR code on bg. Mid-tone
// backgrounds get a slightly softer colour than clearly light or dark ones.
func QRColor(bg color.RGBA) color.RGBA {
	switch l := luminance(bg); {
	case l > 0.6:
		return color.RGBA{20, 20, 20, 255}
	case l < 0.4:
		return color.RGBA{240, 240, 240, 255}
	case l > 0.5:
		return color.RGBA{30, 30, 30, 255}
	default:
		return color.RGBA{225, 225, 225, 255}
	}
}

// SecondaryColor is a softer version of the contrast colour, for less
// important text.
func SecondaryColor(bg color.RGBA) color.RGBA {
	p := ContrastColor(bg)
	if int(p.R)+int(p.G)+int(p.B) > 400 {
		return lighten(p, -60)
	}
	return lighten(p, 60)
}

// BorderColor is the background darkened (light backgrounds) or lightened
// (dark backgrounds) by 20%.
func BorderColor(bg color.RGBA) color.RGBA {
	factor := 1.2
	if luminance(bg) > 0.5 {
		factor = 0.8
	}
	return color.RGBA{
		clamp(float64(bg.R) * factor),
		clamp(float64(bg.G) * factor),
		clamp(float64(bg.B) * factor),
		255,
	}
}

// Enhance multiplies the saturation of c by boost, capped at 1.
func Enhance(c color.RGBA, boost float64) color.RGBA {
	h, s, v := rgbToHSV(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
	s = math.Min(1, s*boost)
	r, g, b := hsvToRGB(h, s, v)
	return color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), 255}
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxV := math.Max(r, math.Max(g, b))
	minV := math.Min(r, math.Min(g, b))
	v = maxV
	if maxV == minV {
		return 0, 0, v
	}
	d := maxV - minV
	s = d / maxV
	switch maxV {
	case r:
		h = (g - b) / d
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	h /= 6
	if h < 0 {
		h++
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
