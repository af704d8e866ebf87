// Package reader opens a PC/SC connection to a contactless reader without
// requiring a card, for use as an iso7816.Transmitter.
package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ebfe/scard"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/log"
)

var (
	ErrNoReaderFound = errors.New("no matching reader found")
	ErrConnectFailed = errors.New("reader connection failed")
	// ErrIOFailure is what the APDU client wraps transport errors in.
	ErrIOFailure = iso7816.ErrTransmit
)

// ccidEscape is the CCID escape control code used by ACS readers.
const ccidEscape = 3500

// Config selects and configures the reader.
type Config struct {
	// Match selects the first reader whose name contains it, case
	// insensitive. Empty matches any reader.
	Match string
	// Escape sends every command with SCardControl on the CCID escape
	// code, even when a card protocol is active. Without a card the
	// escape code is always used.
	Escape bool
}

// handle is the part of *scard.Card a session uses.
type handle interface {
	ActiveProtocol() scard.Protocol
	Transmit(cmd []byte) ([]byte, error)
	Control(ioctl uint32, in []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Session is an open direct connection to a reader.
type Session struct {
	ctx    *scard.Context
	card   handle
	name   string
	escape bool
	ioctl  uint32
}

// Connect establishes a PC/SC context and connects to the selected reader in
// direct mode.
func Connect(cfg Config) (*Session, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("%w: establish context: %w", ErrConnectFailed, err)
	}

	readers, err := ctx.ListReaders()
	if err != nil && !errors.Is(err, scard.ErrNoReadersAvailable) {
		release(ctx)
		return nil, fmt.Errorf("%w: list readers: %w", ErrConnectFailed, err)
	}

	name, err := pick(readers, cfg.Match)
	if err != nil {
		release(ctx)
		return nil, err
	}

	card, err := ctx.Connect(name, scard.ShareDirect, scard.ProtocolUndefined)
	if err != nil {
		release(ctx)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, name, err)
	}

	log.DefaultLog("using reader %q (protocol=%v, escape=%t)", name, card.ActiveProtocol(), cfg.Escape)
	return &Session{ctx: ctx, card: card, name: name, escape: cfg.Escape, ioctl: scard.CtlCode(ccidEscape)}, nil
}

// List returns the names of the connected readers.
func List() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("%w: establish context: %w", ErrConnectFailed, err)
	}
	defer release(ctx)

	readers, err := ctx.ListReaders()
	if errors.Is(err, scard.ErrNoReadersAvailable) {
		return nil, nil
	}
	return readers, err
}

// Name returns the PC/SC name of the connected reader.
func (s *Session) Name() string {
	return s.name
}

// Transmit implements iso7816.Transmitter. A direct connection without a
// card has no T=0/T=1 protocol, so commands go to the reader through the
// escape control code.
func (s *Session) Transmit(cmd []byte) ([]byte, error) {
	if useControl(s.escape, s.card.ActiveProtocol()) {
		return s.card.Control(s.ioctl, cmd)
	}
	return s.card.Transmit(cmd)
}

// Close disconnects without touching the reader state, so a session left
// open on purpose survives, then releases the context.
func (s *Session) Close() error {
	errDisconnect := s.card.Disconnect(scard.LeaveCard)
	errRelease := s.ctx.Release()
	return errors.Join(errDisconnect, errRelease)
}

// pick returns the first reader matching the filter. SAM slots exposed by
// dual-interface readers are skipped.
func pick(readers []string, match string) (string, error) {
	match = strings.ToLower(match)

	for _, r := range readers {
		lower := strings.ToLower(r)
		if strings.Contains(lower, "sam") {
			continue
		}
		if strings.Contains(lower, match) {
			return r, nil
		}
	}

	if match == "" {
		return "", fmt.Errorf("%w (%d readers)", ErrNoReaderFound, len(readers))
	}
	return "", fmt.Errorf("%w: no reader matches %q among %q", ErrNoReaderFound, match, readers)
}

// useControl reports whether a command must go through SCardControl.
// SCardTransmit only works once a card has negotiated T=0 or T=1.
func useControl(escape bool, proto scard.Protocol) bool {
	if escape {
		return true
	}
	return proto != scard.ProtocolT0 && proto != scard.ProtocolT1
}

func release(ctx *scard.Context) {
	if err := ctx.Release(); err != nil {
		log.WarningLog("failed to release context: %v", err)
	}
}
