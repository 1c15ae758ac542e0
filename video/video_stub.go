//go:build !screen

package video

// ScreenSupported returns whether screen support is compiled in.
func ScreenSupported() bool {
	return false
}

// Display is a stub when screen support is not compiled in.
type Display struct{}

// New returns an error when screen support is not compiled in.
func New(cfg Config) (*Display, error) {
	return nil, ErrScreenNotCompiled
}

func (d *Display) Idle()                                  {}
func (d *Display) NowPlaying(name, uid, coverPath string) {}
func (d *Display) Unknown(uid string)                     {}
func (d *Display) Failed(name, uid string)                {}
func (d *Display) ConnectionLost()                        {}
func (d *Display) Message(text string)                    {}
func (d *Display) Shutdown()                              {}
func (d *Display) Release() error                         { return nil }
func (d *Display) Width() int                             { return 0 }
func (d *Display) Height() int                            { return 0 }
