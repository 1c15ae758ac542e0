// Package buttons maps push buttons on GPIO pins to named player controls.
package buttons

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/gpio"
)

// Button binds one BCM pin to a control name such as "toggle" or "next".
type Button struct {
	Pin     int    `yaml:"pin"`
	Control string `yaml:"control"`
}

// Config lists the buttons. Debounce defaults to 200ms.
type Config struct {
	Buttons  []Button      `yaml:"pins"`
	Debounce time.Duration `yaml:"debounce"`
}

// Pad watches the configured buttons.
type Pad struct {
	pins    []*gpio.Pin
	onPress func(control string)

	mu       sync.Mutex
	debounce time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

// New opens the GPIO block and starts watching the buttons. Returns nil when
// no buttons are configured.
func New(cfg Config, onPress func(control string)) (*Pad, error) {
	if len(cfg.Buttons) == 0 {
		return nil, nil
	}
	for _, b := range cfg.Buttons {
		if b.Control == "" {
			return nil, fmt.Errorf("button on pin %d has no control", b.Pin)
		}
	}

	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	p := newPad(cfg.Debounce, onPress)
	for _, b := range cfg.Buttons {
		pin := gpio.NewPin(b.Pin)
		pin.Input()
		pin.PullUp()

		control := b.Control
		if err := pin.Watch(gpio.EdgeFalling, func(*gpio.Pin) { p.press(control) }); err != nil {
			p.Release()
			return nil, fmt.Errorf("watch pin %d: %w", b.Pin, err)
		}
		p.pins = append(p.pins, pin)
		log.Printf("Button on pin %d runs %q", b.Pin, control)
	}
	return p, nil
}

func newPad(debounce time.Duration, onPress func(control string)) *Pad {
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	return &Pad{
		onPress:  onPress,
		debounce: debounce,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// press reports a button edge, dropping contact bounce.
func (p *Pad) press(control string) {
	p.mu.Lock()
	now := p.now()
	if last, ok := p.last[control]; ok && now.Sub(last) < p.debounce {
		p.mu.Unlock()
		return
	}
	p.last[control] = now
	p.mu.Unlock()

	if p.onPress != nil {
		p.onPress(control)
	}
}

// Release stops watching and closes the GPIO block. Safe on a nil Pad.
func (p *Pad) Release() error {
	if p == nil {
		return nil
	}
	for _, pin := range p.pins {
		pin.Unwatch()
	}
	p.pins = nil
	return gpio.Close()
}
