//go:build linux

package rotary

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const (
	defaultChip     = "gpiochip0"
	encoderDebounce = 250 * time.Microsecond
	switchDebounce  = 2 * time.Millisecond
)

// Rotary reads a quadrature volume knob with an optional push switch from
// the GPIO character device.
type Rotary struct {
	lines    []*gpiocdev.Line
	clkPin   int
	handlers Handlers

	mu      sync.Mutex
	decoder *decoder
	pos     atomic.Int64
}

// New requests the encoder lines. Returns nil when no pins are configured.
func New(cfg Config, handlers Handlers) (*Rotary, error) {
	if !cfg.enabled() {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = defaultChip
	}

	r := &Rotary{
		clkPin:   cfg.CLKPin,
		handlers: handlers,
		decoder:  newDecoder(cfg.Detents),
	}

	quadrature := []gpiocdev.LineReqOption{
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(encoderDebounce),
		gpiocdev.WithEventHandler(r.onEdge),
	}
	for _, pin := range []int{cfg.DTPin, cfg.CLKPin} {
		if err := r.request(cfg.Chip, pin, quadrature...); err != nil {
			r.Release()
			return nil, err
		}
	}

	if cfg.ButtonPin > 0 {
		err := r.request(cfg.Chip, cfg.ButtonPin,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(switchDebounce),
			gpiocdev.WithEventHandler(r.onSwitch))
		if err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

func (r *Rotary) request(chip string, pin int, opts ...gpiocdev.LineReqOption) error {
	line, err := gpiocdev.RequestLine(chip, pin, opts...)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", chip, pin, err)
	}
	r.lines = append(r.lines, line)
	return nil
}

func (r *Rotary) onEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge && evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	r.mu.Lock()
	step := r.decoder.edge(evt.Offset == r.clkPin, evt.Type == gpiocdev.LineEventRisingEdge)
	r.mu.Unlock()

	if step == 0 {
		return
	}
	r.pos.Add(int64(step))
	if r.handlers.OnTurn != nil {
		r.handlers.OnTurn(step)
	}
}

func (r *Rotary) onSwitch(gpiocdev.LineEvent) {
	if r.handlers.OnPress != nil {
		r.handlers.OnPress()
	}
}

// Position is the sum of all steps since New.
func (r *Rotary) Position() int64 {
	return r.pos.Load()
}

// Release closes the lines. Safe on a nil Rotary.
func (r *Rotary) Release() error {
	if r == nil {
		return nil
	}
	for _, line := range r.lines {
		line.Close()
	}
	r.lines = nil
	return nil
}
