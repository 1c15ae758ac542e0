// Package indicator shows the player state on whatever is attached: LEDs,
// a neopixel helper or the framebuffer.
package indicator

import "nfcplay/video"

// Indicator reacts to player state changes. Implementations must tolerate a
// nil *CardInfo.
type Indicator interface {
	Idle()
	Playing(info *CardInfo)
	Unknown(uid string)
	Failed(info *CardInfo)
	ConnectionLost()
	Shutdown()

	// Release turns the output off and frees the device.
	Release() error
}

// Config selects the outputs. Unset pins, an empty pipe and a disabled video
// section are skipped.
type Config struct {
	GreenPin  *uint8 `yaml:"green_pin"`
	YellowPin *uint8 `yaml:"yellow_pin"`
	RedPin    *uint8 `yaml:"red_pin"`

	NeopixelPipe string `yaml:"neopixel_pipe"`

	VideoEnabled bool         `yaml:"video_enabled"`
	Video        video.Config `yaml:"video"`
}

func (c Config) hasLEDs() bool {
	return c.GreenPin != nil || c.YellowPin != nil || c.RedPin != nil
}

// New opens every configured output. With none it returns a Noop and with
// more than one a Multi. Outputs already opened are released on error.
func New(cfg Config) (Indicator, error) {
	type opener func() (Indicator, error)

	var openers []opener
	if cfg.hasLEDs() {
		openers = append(openers, func() (Indicator, error) {
			return NewGPIO(cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
		})
	}
	if cfg.NeopixelPipe != "" {
		openers = append(openers, func() (Indicator, error) {
			return NewNeopixel(cfg.NeopixelPipe)
		})
	}
	if cfg.VideoEnabled {
		openers = append(openers, func() (Indicator, error) {
			if !video.ScreenSupported() {
				return nil, video.ErrScreenNotCompiled
			}
			return NewVideo(cfg.Video)
		})
	}

	opened := make([]Indicator, 0, len(openers))
	for _, open := range openers {
		ind, err := open()
		if err != nil {
			NewMulti(opened...).Release()
			return nil, err
		}
		opened = append(opened, ind)
	}

	switch len(opened) {
	case 0:
		return &Noop{}, nil
	case 1:
		return opened[0], nil
	}
	return NewMulti(opened...), nil
}
