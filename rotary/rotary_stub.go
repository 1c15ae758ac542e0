//go:build !linux

package rotary

import "errors"

// ErrNotSupported is returned by New when pins are configured off Linux.
var ErrNotSupported = errors.New("rotary: GPIO character device needs linux")

// Rotary is empty off Linux.
type Rotary struct{}

// New returns nil when no pins are configured, else ErrNotSupported.
func New(cfg Config, handlers Handlers) (*Rotary, error) {
	if !cfg.enabled() {
		return nil, nil
	}
	return nil, ErrNotSupported
}

func (r *Rotary) Position() int64 { return 0 }
func (r *Rotary) Release() error  { return nil }
