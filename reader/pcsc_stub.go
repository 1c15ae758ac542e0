//go:build !pcsc

package reader

import (
	"context"
	"errors"
)

// ErrPCSCNotCompiled is returned when PC/SC support was not compiled in.
var ErrPCSCNotCompiled = errors.New("pcsc support not compiled in (build with -tags=pcsc)")

// PCSCSupported returns whether PC/SC support is compiled in.
func PCSCSupported() bool {
	return false
}

// PCSC is a stub when PC/SC support is not compiled in.
type PCSC struct{}

// NewPCSC returns an error when PC/SC support is not compiled in.
func NewPCSC(index int) (*PCSC, error) {
	return nil, ErrPCSCNotCompiled
}

func (p *PCSC) Read(ctx context.Context) (string, error) { return "", ErrPCSCNotCompiled }
func (p *PCSC) Close() error                             { return nil }
