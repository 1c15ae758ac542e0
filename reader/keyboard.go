package reader

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/kenshaw/evdev"
)

// Keyboard implements UIDReader for USB keyboard-wedge readers that type the
// UID followed by Enter.
type Keyboard struct {
	device *evdev.Evdev
	format keyFormat
	events <-chan *evdev.EventEnvelope
}

// keyFormat describes what a keyboard reader types for one card.
type keyFormat struct {
	spec      string
	numDigits int  // expected number of digits (0 = any)
	isHex     bool // hex digits as typed, or a decimal number
}

// parseKeyFormat parses formats like "8h" (8 hex digits), "10d" (10 decimal
// digits) or "h" (any number of hex digits). Empty means "h".
func parseKeyFormat(spec string) (keyFormat, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		spec = "h"
	}

	f := keyFormat{spec: spec, isHex: true}
	digits := spec
	switch {
	case strings.HasSuffix(spec, "h"):
		digits = strings.TrimSuffix(spec, "h")
	case strings.HasSuffix(spec, "d"):
		f.isHex = false
		digits = strings.TrimSuffix(spec, "d")
	}

	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return keyFormat{}, fmt.Errorf("invalid keyboard format %q", spec)
		}
		f.numDigits = n
	}
	return f, nil
}

// uid turns one typed line into a UID string. Hex input is upper-cased, the
// way PC/SC readers report UIDs. Decimal input must fit 32 bits and is
// converted to 8 hex digits.
func (f keyFormat) uid(line string) (string, error) {
	if f.numDigits > 0 && len(line) != f.numDigits {
		return "", fmt.Errorf("expected %d digits, got %d (%q)", f.numDigits, len(line), line)
	}

	if f.isHex {
		if _, err := strconv.ParseUint(line, 16, 64); err != nil {
			return "", fmt.Errorf("bad hex line %q: %w", line, err)
		}
		return strings.ToUpper(line), nil
	}

	// Decimal readers print a 32-bit card number; anything larger is a misread.
	number, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return "", fmt.Errorf("bad decimal line %q: %w", line, err)
	}
	return fmt.Sprintf("%08X", number), nil
}

// NewKeyboard opens the input device of a keyboard-wedge reader. format is
// parsed by parseKeyFormat.
func NewKeyboard(path, format string) (*Keyboard, error) {
	f, err := parseKeyFormat(format)
	if err != nil {
		return nil, err
	}
	dev, err := evdev.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", path, err)
	}
	id := dev.ID()
	log.Printf("Keyboard reader %q (%04x:%04x), format %s", dev.Name(), id.Vendor, id.Product, f.spec)
	return &Keyboard{device: dev, format: f}, nil
}

// Read collects key presses up to Enter. Lines that do not match the format
// are logged and skipped.
func (k *Keyboard) Read(ctx context.Context) (string, error) {
	if k.events == nil {
		k.events = k.device.Poll(context.Background())
	}

	var line strings.Builder
	for {
		var ev *evdev.EventEnvelope
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev = <-k.events:
		}
		if ev == nil {
			return "", fmt.Errorf("keyboard device closed: %w", ErrDisconnected)
		}
		key, isKey := ev.Type.(evdev.KeyType)
		if !isKey || ev.Value != 1 {
			continue
		}
		if key != evdev.KeyEnter {
			line.WriteString(evdev.KeyType(ev.Code).String())
			continue
		}
		if line.Len() == 0 {
			continue
		}
		uid, err := k.format.uid(line.String())
		line.Reset()
		if err != nil {
			log.Printf("Keyboard reader: %v", err)
			continue
		}
		return uid, nil
	}
}

func (k *Keyboard) Close() error {
	return k.device.Close()
}
