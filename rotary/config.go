package rotary

// Config holds the BCM line offsets of the volume knob.
type Config struct {
	Chip      string `yaml:"chip"`
	CLKPin    int    `yaml:"clk_pin"`
	DTPin     int    `yaml:"dt_pin"`
	ButtonPin int    `yaml:"button_pin"`
	// Detents per reported step; cheap encoders give two or four per click.
	Detents int `yaml:"detents"`
}

func (c Config) enabled() bool {
	return c.CLKPin != 0 || c.DTPin != 0
}

// Handlers receive knob events on the gpiocdev event goroutine.
type Handlers struct {
	OnTurn  func(step int) // +1 clockwise, -1 counter-clockwise
	OnPress func()
}

// decoder turns CLK/DT edges into steps.
type decoder struct {
	lastCLK int
	lastDT  int
	pending int
	detents int
}

func newDecoder(detents int) *decoder {
	if detents < 1 {
		detents = 1
	}
	return &decoder{detents: detents}
}

// edge records one edge and returns the step it completes: +1, -1 or 0.
func (d *decoder) edge(clk bool, rising bool) int {
	state := 0
	if rising {
		state = 1
	}
	if clk {
		d.lastCLK = state
	} else {
		d.lastDT = state
	}

	// Direction is decided on the CLK rising edge.
	if !clk || !rising {
		return 0
	}
	if d.lastDT == 0 {
		d.pending++
	} else {
		d.pending--
	}

	switch {
	case d.pending >= d.detents:
		d.pending = 0
		return 1
	case d.pending <= -d.detents:
		d.pending = 0
		return -1
	}
	return 0
}
