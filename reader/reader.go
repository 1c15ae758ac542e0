package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDisconnected is returned once the reader hardware has gone away.
var ErrDisconnected = errors.New("card reader disconnected")

// UIDReader is the interface for all card reader implementations.
type UIDReader interface {
	// Read blocks until a card is read, the reader notices that no card is
	// present, or ctx is cancelled.
	// ("", nil) means no card is on the reader (removed, or a poll timed out).
	// Any error is fatal for the reader.
	Read(ctx context.Context) (string, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type   string `yaml:"type" env:"TYPE"`     // "keyboard", "serial", "wiegand", "pipe", "pcsc"
	Device string `yaml:"device" env:"DEVICE"` // e.g. "/dev/ttyUSB0", "/dev/input/event0", "/tmp/nfcplay-cards"
	Baud   int    `yaml:"baud"`                // baud rate for serial devices
	Format string `yaml:"format"`              // keyboard digit format, e.g. "8h", "10d"
	Index  int    `yaml:"index"`               // PC/SC reader index
}

// ReportsRemoval tells whether readers of this type return ("", nil) when a
// card is taken away. The others need a time-based re-arm for debouncing.
func (c Config) ReportsRemoval() bool {
	switch strings.ToLower(c.Type) {
	case "pcsc", "", "pipe", "fifo":
		return true
	default:
		return false
	}
}

// New creates a UIDReader based on the provided configuration.
func New(cfg Config) (UIDReader, error) {
	switch strings.ToLower(cfg.Type) {
	case "keyboard", "kbd":
		return NewKeyboard(cfg.Device, cfg.Format)
	case "serial":
		return NewSerial(cfg.Device, cfg.Baud)
	case "wiegand":
		return NewWiegand(cfg.Device, cfg.Baud)
	case "pipe", "fifo":
		return NewPipe(cfg.Device)
	case "pcsc", "":
		return NewPCSC(cfg.Index)
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}
