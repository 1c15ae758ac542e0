package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nfcplay/dispatch"
)

// tapWindow is how far a remote tap timestamp may drift from our clock.
const tapWindow = 5 * time.Minute

// TapRequest is a signed request to act as if a card was put on the reader.
type TapRequest struct {
	UID       string `json:"uid"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

// handleTap verifies a tap request and runs the card's command.
func (app *App) handleTap(payload []byte, now time.Time) (dispatch.Outcome, error) {
	if app.cfg.RemoteSecret == "" {
		return dispatch.Ignored, errors.New("remote tap disabled (no secret configured)")
	}

	var req TapRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return dispatch.Ignored, fmt.Errorf("decode tap request: %w", err)
	}
	if req.UID == "" {
		return dispatch.Ignored, errors.New("tap request without uid")
	}
	if err := verifySignature(app.cfg.RemoteSecret, req.UID, req.Timestamp, req.Signature); err != nil {
		return dispatch.Ignored, err
	}
	if err := checkTimestamp(req.Timestamp, now); err != nil {
		return dispatch.Ignored, err
	}

	fmt.Printf("Remote tap for %s\n", req.UID)
	return app.dispatcher.Trigger(req.UID), nil
}

func checkTimestamp(ts uint64, now time.Time) error {
	skew := now.Sub(time.Unix(int64(ts), 0)).Abs()
	if skew > tapWindow {
		return fmt.Errorf("tap request is %s off our clock", skew.Round(time.Second))
	}
	return nil
}

// tapMAC is HMAC-SHA256 over the uid followed by the big-endian timestamp,
// keyed with the decoded secret.
func tapMAC(base64Secret, uid string, ts uint64) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	switch {
	case err != nil:
		return nil, fmt.Errorf("invalid base64 secret: %w", err)
	case len(key) == 0:
		return nil, errors.New("secret cannot be empty")
	}
	h := hmac.New(sha256.New, key)
	h.Write(binary.BigEndian.AppendUint64([]byte(uid), ts))
	return h.Sum(nil), nil
}

// signTap returns the signature in both accepted encodings.
func signTap(base64Secret, uid string, ts uint64) (hexSig, b64Sig string, err error) {
	sum, err := tapMAC(base64Secret, uid, ts)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(sum), base64.StdEncoding.EncodeToString(sum), nil
}

// verifySignature accepts sig as hex or standard base64.
func verifySignature(base64Secret, uid string, ts uint64, sig string) error {
	want, err := tapMAC(base64Secret, uid, ts)
	if err != nil {
		return err
	}
	for _, decode := range []func(string) ([]byte, error){hex.DecodeString, base64.StdEncoding.DecodeString} {
		if got, err := decode(sig); err == nil && hmac.Equal(got, want) {
			return nil
		}
	}
	return errors.New("signature verification failed")
}
