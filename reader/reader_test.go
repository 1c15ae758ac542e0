package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyFormat(t *testing.T) {
	tests := []struct {
		spec      string
		numDigits int
		isHex     bool
		wantErr   bool
	}{
		{spec: "", numDigits: 0, isHex: true},
		{spec: "8h", numDigits: 8, isHex: true},
		{spec: "14H", numDigits: 14, isHex: true},
		{spec: "10d", numDigits: 10, isHex: false},
		{spec: "d", numDigits: 0, isHex: false},
		{spec: "10", numDigits: 10, isHex: true},
		{spec: "xx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			f, err := parseKeyFormat(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.numDigits, f.numDigits)
			assert.Equal(t, tt.isHex, f.isHex)
		})
	}
}

func TestKeyFormatUID(t *testing.T) {
	hex8, err := parseKeyFormat("8h")
	require.NoError(t, err)

	uid, err := hex8.uid("b2ba9c1e")
	require.NoError(t, err)
	assert.Equal(t, "B2BA9C1E", uid)

	_, err = hex8.uid("B2BA9C")
	assert.Error(t, err, "wrong digit count")

	_, err = hex8.uid("B2BA9CXX")
	assert.Error(t, err, "not hex")

	dec, err := parseKeyFormat("10d")
	require.NoError(t, err)
	uid, err = dec.uid("2998574110")
	require.NoError(t, err)
	assert.Equal(t, "B2BA9C1E", uid)

	uid, err = dec.uid("4294967295")
	require.NoError(t, err)
	assert.Equal(t, "FFFFFFFF", uid)

	// Out of 32-bit range: rejected rather than folded onto another card.
	_, err = dec.uid("9999999999")
	assert.Error(t, err)
	uid, err = dec.uid("1410065407")
	require.NoError(t, err)
	assert.Equal(t, "540BE3FF", uid)
}

func serialFrame(tag uint32) []byte {
	data := []byte{0x09, 0x00, byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)}
	xor := data[0]
	for _, b := range data[1:] {
		xor ^= b
	}
	return append(append([]byte{0x02}, data...), xor, 0x03)
}

func TestDecodeSerialFrame(t *testing.T) {
	frame := serialFrame(0xB2BA9C1E)
	require.Len(t, frame, serialFrameLen)

	tag, ok := decodeSerialFrame(frame)
	require.True(t, ok)
	assert.Equal(t, uint32(0xB2BA9C1E), tag)

	bad := append([]byte(nil), frame...)
	bad[7] ^= 0xff
	_, ok = decodeSerialFrame(bad)
	assert.False(t, ok, "checksum mismatch")

	_, ok = decodeSerialFrame(frame[:8])
	assert.False(t, ok, "short frame")

	noTerm := append([]byte(nil), frame...)
	noTerm[8] = 0x00
	_, ok = decodeSerialFrame(noTerm)
	assert.False(t, ok, "missing terminator")
}

func TestDecodeWiegandID(t *testing.T) {
	uid, err := decodeWiegandID("0012BA9C1E")
	require.NoError(t, err)
	assert.Equal(t, "00BA9C1E", uid)

	uid, err = decodeWiegandID("ba9c1e")
	require.NoError(t, err)
	assert.Equal(t, "00BA9C1E", uid)

	_, err = decodeWiegandID("00G2BA9C1E")
	assert.Error(t, err)

	_, err = decodeWiegandID("0012BA9C1E00")
	assert.Error(t, err)
}

func TestUIDFromResponse(t *testing.T) {
	assert.Equal(t, "B2BA9C1E", uidFromResponse([]byte{0xB2, 0xBA, 0x9C, 0x1E, 0x90, 0x00}))
	assert.Equal(t, "04A1B2C3D4E580", uidFromResponse([]byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0x80, 0x90, 0x00}))
	assert.Equal(t, "", uidFromResponse([]byte{0x63, 0x00}))
	assert.Equal(t, "", uidFromResponse([]byte{0xB2, 0xBA, 0x63, 0x00}))
	assert.Equal(t, "", uidFromResponse(nil))
}

func TestParsePipeLine(t *testing.T) {
	tests := []struct {
		line    string
		uid     string
		ok      bool
		wantErr bool
	}{
		{line: "card B2BA9C1E", uid: "B2BA9C1E", ok: true},
		{line: "  TAG 04a1b2c3 ", uid: "04a1b2c3", ok: true},
		{line: "remove", uid: "", ok: true},
		{line: "", ok: false},
		{line: "# a comment", ok: false},
		{line: "card", wantErr: true},
		{line: "rotary 1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			uid, ok, err := parsePipeLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.uid, uid)
		})
	}
}

func TestPipeReadsCards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards")
	p, err := NewPipe(path)
	require.NoError(t, err)
	defer p.Close()

	go func() {
		w, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return
		}
		defer w.Close()
		w.WriteString("# test\ncard B2BA9C1E\nbogus\nremove\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uid, err := p.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B2BA9C1E", uid)

	uid, err = p.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", uid)
}

func TestPipeReadHonoursContext(t *testing.T) {
	p, err := NewPipe(filepath.Join(t.TempDir(), "cards"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, p.Close())
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(Config{Type: "laser"})
	assert.Error(t, err)
}

func TestReportsRemoval(t *testing.T) {
	assert.True(t, Config{Type: "pcsc"}.ReportsRemoval())
	assert.True(t, Config{Type: "pipe"}.ReportsRemoval())
	assert.True(t, Config{}.ReportsRemoval(), "pcsc is the default")
	assert.False(t, Config{Type: "keyboard"}.ReportsRemoval())
	assert.False(t, Config{Type: "serial"}.ReportsRemoval())
}

func TestWiegandFeed(t *testing.T) {
	w := &Wiegand{}
	feed := func(data string) []string {
		var uids []string
		for i := 0; i < len(data); i++ {
			if uid, ok := w.feed(data[i]); ok {
				uids = append(uids, uid)
			}
		}
		return uids
	}

	assert.Equal(t, []string{"00BA9C1E"}, feed("noise\x020012BA9C1E\x03"))
	assert.Empty(t, feed("\x02zz\x03"), "bad hex is dropped")
	assert.Empty(t, feed("\x020123456789ABCDEF0123\x03"), "overlong body is dropped")
	assert.Equal(t, []string{"0000002A"}, feed("\x0212\x02002A\x03"), "STX restarts a frame")
}
