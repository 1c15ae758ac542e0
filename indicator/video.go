//go:build screen

package indicator

import (
	"nfcplay/video"
)

// VideoIndicator wraps video.Display to implement Indicator.
type VideoIndicator struct {
	d *video.Display
}

// NewVideo creates a new video-based indicator.
func NewVideo(cfg video.Config) (*VideoIndicator, error) {
	d, err := video.New(cfg)
	if err != nil {
		return nil, err
	}
	return &VideoIndicator{d: d}, nil
}

// Idle implements Indicator.Idle.
func (vi *VideoIndicator) Idle() {
	vi.d.Idle()
}

// Playing implements Indicator.Playing.
func (vi *VideoIndicator) Playing(info *CardInfo) {
	vi.d.NowPlaying(info.fields())
}

// Unknown implements Indicator.Unknown.
func (vi *VideoIndicator) Unknown(uid string) {
	vi.d.Unknown(uid)
}

// Failed implements Indicator.Failed.
func (vi *VideoIndicator) Failed(info *CardInfo) {
	name, uid, _ := info.fields()
	vi.d.Failed(name, uid)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (vi *VideoIndicator) ConnectionLost() {
	vi.d.ConnectionLost()
}

// Shutdown implements Indicator.Shutdown.
func (vi *VideoIndicator) Shutdown() {
	vi.d.Shutdown()
}

// Release implements Indicator.Release.
func (vi *VideoIndicator) Release() error {
	return vi.d.Release()
}

// Display returns the underlying display, e.g. to show the volume.
func (vi *VideoIndicator) Display() *video.Display {
	return vi.d
}
