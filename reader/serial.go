package reader

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// A serial frame is 02 09, four reserved/tag bytes, checksum, 03. The
// checksum is the XOR of bytes 1 to 6.
const serialFrameLen = 9

// Serial reads framed serial RFID modules. They report cards but never
// removal.
type Serial struct {
	port *serial.Port
}

// NewSerial opens device at 115200 baud unless baud is set.
func NewSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = 115200
	}
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud, ReadTimeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Serial{port: port}, nil
}

// Read returns the next valid frame as an 8 digit hex UID.
func (s *Serial) Read(ctx context.Context) (string, error) {
	frame := make([]byte, serialFrameLen)
	for ctx.Err() == nil {
		n, err := s.port.Read(frame)
		if err == nil {
			if tag, ok := decodeSerialFrame(frame[:n]); ok {
				return fmt.Sprintf("%08X", tag), nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return "", ctx.Err()
}

func decodeSerialFrame(frame []byte) (uint32, bool) {
	if len(frame) != serialFrameLen || frame[0] != 0x02 || frame[1] != 0x09 || frame[8] != 0x03 {
		return 0, false
	}
	var sum byte
	for _, b := range frame[1:7] {
		sum ^= b
	}
	if sum != frame[7] {
		return 0, false
	}
	return binary.BigEndian.Uint32(frame[3:7]), true
}

func (s *Serial) Close() error {
	return s.port.Close()
}
