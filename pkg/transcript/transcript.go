// Package transcript records reader exchanges to CBOR and replays them as a
// deterministic transport.
package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
)

var (
	ErrMismatch  = errors.New("transcript: command does not match the recording")
	ErrExhausted = errors.New("transcript: no recorded exchange left")
)

// Exchange is one recorded round trip. Err holds the transport error text
// when the exchange failed, in which case Response is empty.
type Exchange struct {
	Command  []byte `cbor:"1,keyasint"`
	Response []byte `cbor:"2,keyasint,omitempty"`
	Err      string `cbor:"3,keyasint,omitempty"`
}

// Transcript is a recorded session.
type Transcript struct {
	Reader    string     `cbor:"reader"`
	Created   time.Time  `cbor:"created"`
	Exchanges []Exchange `cbor:"exchanges"`
}

var (
	encMode, _ = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	decMode, _ = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
)

// Save writes t as one CBOR item.
func (t *Transcript) Save(w io.Writer) error {
	if err := encMode.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return nil
}

// Load reads a transcript written by Save.
func Load(r io.Reader) (*Transcript, error) {
	var t Transcript
	if err := decMode.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &t, nil
}

// Recorder passes commands to the next Transmitter and records them.
type Recorder struct {
	next iso7816.Transmitter

	mu sync.Mutex
	t  Transcript
}

// NewRecorder wraps next. reader names the recorded device.
func NewRecorder(next iso7816.Transmitter, reader string) *Recorder {
	return &Recorder{
		next: next,
		t:    Transcript{Reader: reader, Created: time.Now().UTC()},
	}
}

// Transmit implements iso7816.Transmitter.
func (r *Recorder) Transmit(cmd []byte) ([]byte, error) {
	resp, err := r.next.Transmit(cmd)

	ex := Exchange{Command: bytes.Clone(cmd)}
	if err != nil {
		ex.Err = err.Error()
	} else {
		ex.Response = bytes.Clone(resp)
	}

	r.mu.Lock()
	r.t.Exchanges = append(r.t.Exchanges, ex)
	r.mu.Unlock()

	return resp, err
}

// Transcript returns a copy of what was recorded so far.
func (r *Recorder) Transcript() *Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.t
	t.Exchanges = append([]Exchange(nil), r.t.Exchanges...)
	return &t
}

// Save writes the recording.
func (r *Recorder) Save(w io.Writer) error {
	return r.Transcript().Save(w)
}

// Replayer answers commands from a transcript, in order. A command that
// differs from the recorded one fails with ErrMismatch and does not advance.
type Replayer struct {
	mu  sync.Mutex
	t   *Transcript
	pos int
}

// NewReplayer replays t from its first exchange.
func NewReplayer(t *Transcript) *Replayer {
	return &Replayer{t: t}
}

// Transmit implements iso7816.Transmitter.
func (p *Replayer) Transmit(cmd []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pos >= len(p.t.Exchanges) {
		return nil, ErrExhausted
	}

	ex := p.t.Exchanges[p.pos]
	if !bytes.Equal(ex.Command, cmd) {
		return nil, fmt.Errorf("%w: exchange %d: got % X, recorded % X", ErrMismatch, p.pos, cmd, ex.Command)
	}
	p.pos++

	if ex.Err != "" {
		return nil, errors.New(ex.Err)
	}
	return bytes.Clone(ex.Response), nil
}

// Remaining returns how many recorded exchanges have not been replayed.
func (p *Replayer) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.t.Exchanges) - p.pos
}
