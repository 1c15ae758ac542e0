package rotary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// click feeds the edges of one detent: DT low means clockwise.
func click(d *decoder, clockwise bool) int {
	d.edge(false, !clockwise)
	d.edge(true, false)
	return d.edge(true, true)
}

func TestDecoderDirection(t *testing.T) {
	d := newDecoder(1)
	assert.Equal(t, 1, click(d, true))
	assert.Equal(t, -1, click(d, false))
}

func TestDecoderIgnoresNonCLKEdges(t *testing.T) {
	d := newDecoder(1)
	assert.Zero(t, d.edge(false, true))
	assert.Zero(t, d.edge(false, false))
	assert.Zero(t, d.edge(true, false))
}

func TestDecoderDetents(t *testing.T) {
	d := newDecoder(2)
	assert.Zero(t, click(d, true))
	assert.Equal(t, 1, click(d, true))

	// A change of direction cancels the half step.
	assert.Zero(t, click(d, true))
	assert.Zero(t, click(d, false))
	assert.Zero(t, click(d, false))
	assert.Equal(t, -1, click(d, false))
}

func TestNewWithoutPins(t *testing.T) {
	r, err := New(Config{}, Handlers{})
	assert.NoError(t, err)
	assert.Nil(t, r)
}
