package reader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.bug.st/serial"
)

const (
	stx = 0x02
	etx = 0x03

	// wiegandMaxBody bounds a frame body; longer runs are line noise.
	wiegandMaxBody = 16
)

// Wiegand reads Wiegand-to-serial converters that send each card as
// STX, up to ten hex digits, ETX.
type Wiegand struct {
	port serial.Port

	body    []byte
	inFrame bool
}

// NewWiegand opens the converter at 9600 8N1 unless baud is set.
func NewWiegand(device string, baud int) (*Wiegand, error) {
	if baud == 0 {
		baud = 9600
	}
	p, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset %s: %w", device, err)
	}
	return &Wiegand{port: p}, nil
}

// Read blocks until a well-formed frame arrives. Malformed frames are
// dropped; only port failures end the read.
func (w *Wiegand) Read(ctx context.Context) (string, error) {
	chunk := make([]byte, 32)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := w.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("wiegand read: %w: %v", ErrDisconnected, err)
		}
		for _, b := range chunk[:n] {
			if uid, ok := w.feed(b); ok {
				return uid, nil
			}
		}
	}
}

// feed advances the frame parser by one byte and reports a complete UID.
func (w *Wiegand) feed(b byte) (string, bool) {
	switch {
	case b == stx:
		w.inFrame, w.body = true, w.body[:0]
	case !w.inFrame:
	case b == etx:
		w.inFrame = false
		uid, err := decodeWiegandID(string(w.body))
		return uid, err == nil
	case len(w.body) >= wiegandMaxBody:
		w.inFrame = false
	default:
		w.body = append(w.body, b)
	}
	return "", false
}

// decodeWiegandID keeps the 24-bit card number from a hex frame body of at
// most ten digits.
func decodeWiegandID(id string) (string, error) {
	if id == "" || len(id) > 10 {
		return "", fmt.Errorf("bad wiegand id length %d", len(id))
	}
	v, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return "", fmt.Errorf("bad wiegand id %q: %w", id, err)
	}
	return fmt.Sprintf("%08X", v&0xFFFFFF), nil
}

func (w *Wiegand) Close() error {
	return w.port.Close()
}
