package reader

import (
	"encoding/hex"
	"strings"
)

// getUID is the PC/SC pseudo-APDU that returns the card UID.
var getUID = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}

// uidFromResponse extracts the UID from a GET DATA response. The trailing two
// bytes are the status word; anything but 90 00 means no UID.
func uidFromResponse(rsp []byte) string {
	if len(rsp) < 3 {
		return ""
	}
	sw1, sw2 := rsp[len(rsp)-2], rsp[len(rsp)-1]
	if sw1 != 0x90 || sw2 != 0x00 {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(rsp[:len(rsp)-2]))
}
