//go:build pcsc

package reader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ebfe/scard"
)

const pcscPollInterval = 500 * time.Millisecond

// PCSCSupported returns whether PC/SC support is compiled in.
func PCSCSupported() bool {
	return true
}

// PCSC implements UIDReader for PC/SC readers such as the ACR122U.
type PCSC struct {
	ctx    *scard.Context
	reader string
	polled bool
}

// NewPCSC connects to the PC/SC daemon and picks the reader at index.
func NewPCSC(index int) (*PCSC, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish pcsc context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("list pcsc readers: %w", err)
	}
	if len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("no pcsc readers found")
	}
	if index < 0 || index >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("pcsc reader index %d out of range (%d readers)", index, len(readers))
	}

	log.Printf("Using PC/SC reader: %s", readers[index])
	return &PCSC{ctx: ctx, reader: readers[index]}, nil
}

// Read implements UIDReader.Read. Every call after the first waits one poll
// interval, then reports the UID of the card on the reader or "" if there is
// none.
func (p *PCSC) Read(ctx context.Context) (string, error) {
	if p.polled {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pcscPollInterval):
		}
	}
	p.polled = true

	card, err := p.ctx.Connect(p.reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		switch {
		case errors.Is(err, scard.ErrReaderUnavailable), errors.Is(err, scard.ErrUnknownReader),
			errors.Is(err, scard.ErrNoService):
			return "", fmt.Errorf("%s: %w: %v", p.reader, ErrDisconnected, err)
		}
		// No card, or it was pulled away mid-connect.
		return "", nil
	}
	defer card.Disconnect(scard.LeaveCard)

	rsp, err := card.Transmit(getUID)
	if err != nil {
		return "", nil
	}
	return uidFromResponse(rsp), nil
}

// Close implements UIDReader.Close.
func (p *PCSC) Close() error {
	if p.ctx == nil {
		return nil
	}
	return p.ctx.Release()
}
