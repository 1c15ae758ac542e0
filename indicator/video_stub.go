//go:build !screen

package indicator

import (
	"nfcplay/video"
)

// NewVideo returns an error when screen support is not compiled in.
func NewVideo(cfg video.Config) (*VideoIndicator, error) {
	return nil, video.ErrScreenNotCompiled
}

// VideoIndicator is a stub when screen support is not compiled in.
type VideoIndicator struct{}

func (vi *VideoIndicator) Idle()                   {}
func (vi *VideoIndicator) Playing(info *CardInfo)  {}
func (vi *VideoIndicator) Unknown(uid string)      {}
func (vi *VideoIndicator) Failed(info *CardInfo)   {}
func (vi *VideoIndicator) ConnectionLost()         {}
func (vi *VideoIndicator) Shutdown()               {}
func (vi *VideoIndicator) Release() error          { return nil }
func (vi *VideoIndicator) Display() *video.Display { return nil }
