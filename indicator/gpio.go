package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO drives up to three LEDs through the BCM2835 registers. Green means
// playing, yellow an unknown card and red a failed command. Yellow plus red
// means the broker connection was lost.
type GPIO struct {
	hw                 govattu.Vattu
	green, yellow, red *uint8
}

func NewGPIO(green, yellow, red *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	g := &GPIO{hw: hw, green: green, yellow: yellow, red: red}
	g.forEach(func(pin uint8) {
		hw.PinMode(pin, govattu.ALToutput)
		hw.PinClear(pin)
	})
	return g, nil
}

// forEach calls fn for every configured pin.
func (g *GPIO) forEach(fn func(pin uint8)) {
	for _, p := range [...]*uint8{g.green, g.yellow, g.red} {
		if p != nil {
			fn(*p)
		}
	}
}

// light turns on exactly the given LEDs.
func (g *GPIO) light(on ...*uint8) {
	g.forEach(g.hw.PinClear)
	for _, p := range on {
		if p != nil {
			g.hw.PinSet(*p)
		}
	}
}

func (g *GPIO) Idle()                  { g.light() }
func (g *GPIO) Shutdown()              { g.light() }
func (g *GPIO) Playing(info *CardInfo) { g.light(g.green) }
func (g *GPIO) Unknown(uid string)     { g.light(g.yellow) }
func (g *GPIO) Failed(info *CardInfo)  { g.light(g.red) }
func (g *GPIO) ConnectionLost()        { g.light(g.yellow, g.red) }

func (g *GPIO) Release() error {
	g.light()
	return g.hw.Close()
}
