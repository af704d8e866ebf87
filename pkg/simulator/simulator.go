// Package simulator provides an in-memory ACR reader that speaks the
// transparent session protocol. It implements iso7816.Transmitter, so it can
// stand in for a PC/SC connection in tests and in -simulate runs.
package simulator

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gregLibert/acr-transparent/pkg/acr"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/log"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
	"github.com/skythen/apdu"
)

// Card answers frames sent through a transparent exchange. ok is false when
// the card stays silent.
type Card interface {
	Respond(frame []byte) (reply []byte, ok bool)
}

// CardFunc adapts a function to Card.
type CardFunc func(frame []byte) ([]byte, bool)

// Respond calls f(frame).
func (f CardFunc) Respond(frame []byte) ([]byte, bool) { return f(frame) }

// Reader simulates the reader side of a transparent session.
type Reader struct {
	mu sync.Mutex

	card    Card
	atr     []byte
	session bool
	field   bool

	protocol [2]byte
	timer    []byte
	params   tlv.Records

	failNext   *iso7816.StatusWord
	rejectNext *iso7816.StatusWord
	commands   int
}

// Option configures a Reader.
type Option func(*Reader)

// WithCard puts a card in the field.
func WithCard(c Card) Option {
	return func(r *Reader) { r.card = c }
}

// defaultATR is the PC/SC ATR of a MIFARE Ultralight.
var defaultATR = []byte{
	0x3B, 0x8F, 0x80, 0x01, 0x80, 0x4F, 0x0C, 0xA0, 0x00, 0x00,
	0x03, 0x06, 0x03, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x68,
}

// WithATR sets the ATR reported when a card is activated at layer 4.
func WithATR(atr []byte) Option {
	return func(r *Reader) { r.atr = atr }
}

// New returns an idle reader with the field off.
func New(opts ...Option) *Reader {
	r := &Reader{atr: append([]byte(nil), defaultATR...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session reports whether a transparent session is open.
func (r *Reader) Session() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Field reports whether the RF field is on.
func (r *Reader) Field() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.field
}

// Parameters returns the last Set Parameters content.
func (r *Reader) Parameters() tlv.Records {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(tlv.Records(nil), r.params...)
}

// Protocol returns the last standard and layer selected.
func (r *Reader) Protocol() (standard, layer byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.protocol[0], r.protocol[1]
}

// Timer returns the last timer value set.
func (r *Reader) Timer() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.timer...)
}

// Commands returns how many commands were received.
func (r *Reader) Commands() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands
}

// FailNext makes the next command fail with sw in SW1 SW2 and no data.
func (r *Reader) FailNext(sw iso7816.StatusWord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = &sw
}

// RejectNext makes the reader refuse the first data object of the next
// command, reporting sw in the Status data object under SW 9000.
func (r *Reader) RejectNext(sw iso7816.StatusWord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectNext = &sw
}

// Transmit processes one command APDU and returns the reply.
func (r *Reader) Transmit(raw []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands++

	capdu, err := apdu.ParseCapdu(raw)
	if err != nil {
		return reply(nil, iso7816.SW_ERR_WRONG_LENGTH)
	}

	if sw := r.failNext; sw != nil {
		r.failNext = nil
		return reply(nil, *sw)
	}

	switch {
	case capdu.Cla != iso7816.ReaderEscape:
		return reply(nil, iso7816.SW_ERR_CLA_NOT_SUPPORTED)
	case capdu.Ins != byte(iso7816.INS_DIRECT_TRANSMIT):
		return reply(nil, iso7816.SW_ERR_INS_INVALID)
	case capdu.P1 != 0x00 || capdu.P2 > acr.P2SwitchProtocol:
		return reply(nil, iso7816.SW_ERR_WRONG_P1P2)
	}

	records, err := acr.Commands.Parse(capdu.Data)
	if err != nil {
		log.DebugLog("simulator: undecodable data: %v", err)
		return reply(nil, iso7816.SW_ERR_WRONG_LENGTH)
	}

	if sw := r.rejectNext; sw != nil {
		r.rejectNext = nil
		return reply(tlv.Records{status(1, *sw)}, iso7816.SW_NO_ERROR)
	}

	var out tlv.Records
	switch capdu.P2 {
	case acr.P2ManageSession:
		out = r.manage(records)
	case acr.P2Exchange:
		out = r.exchange(records)
	case acr.P2SwitchProtocol:
		out = r.switchProtocol(records)
	}
	return reply(out, iso7816.SW_NO_ERROR)
}

func (r *Reader) manage(records tlv.Records) tlv.Records {
	for i, rec := range records {
		idx := byte(i + 1)

		if rec.Tag != 0x81 && !r.session {
			return tlv.Records{status(idx, iso7816.SW_ERR_CMD_NOT_ALLOWED)}
		}

		switch rec.Tag {
		case 0x81:
			r.session = true
		case 0x82:
			r.session = false
			r.field = false
		case 0x83:
			r.field = false
		case 0x84:
			r.field = true
		case acr.TagTimer:
			timer, err := hex.DecodeString(rec.Value)
			if err != nil {
				return tlv.Records{status(idx, iso7816.SW_ERR_WRONG_DATA)}
			}
			r.timer = timer
		case acr.TagSetParameter:
			value, err := hex.DecodeString(rec.Value)
			if err != nil {
				return tlv.Records{status(idx, iso7816.SW_ERR_WRONG_DATA)}
			}
			params, err := acr.DecodeParameters(value)
			if err != nil {
				return tlv.Records{status(idx, iso7816.SW_ERR_WRONG_DATA)}
			}
			r.params = params
		default:
			return tlv.Records{status(idx, iso7816.SW_ERR_FUNC_NOT_SUPP)}
		}
	}
	return tlv.Records{status(0, iso7816.SW_NO_ERROR)}
}

func (r *Reader) exchange(records tlv.Records) tlv.Records {
	if !r.session {
		return tlv.Records{status(1, iso7816.SW_ERR_CMD_NOT_ALLOWED)}
	}

	frame, ok := records.Get(0x95)
	if !ok {
		return tlv.Records{status(1, iso7816.SW_ERR_FUNC_NOT_SUPP)}
	}
	if !r.field || r.card == nil {
		return tlv.Records{status(1, iso7816.SW_ERR_NO_CARD_RESPONSE)}
	}

	raw, err := hex.DecodeString(frame)
	if err != nil {
		return tlv.Records{status(1, iso7816.SW_ERR_WRONG_DATA)}
	}
	resp, ok := r.card.Respond(raw)
	if !ok {
		return tlv.Records{status(1, iso7816.SW_ERR_NO_CARD_RESPONSE)}
	}

	out := tlv.Records{
		status(0, iso7816.SW_NO_ERROR),
		{Tag: 0x92, Value: "00"},
		{Tag: acr.TagResponseStatus, Value: "0000"},
	}
	if len(resp) > 0 {
		out = append(out, tlv.Record{Tag: acr.TagCardResponse, Value: hex.EncodeToString(resp)})
	}
	return out
}

func (r *Reader) switchProtocol(records tlv.Records) tlv.Records {
	if !r.session {
		return tlv.Records{status(1, iso7816.SW_ERR_CMD_NOT_ALLOWED)}
	}

	v, ok := records.Get(0x8F)
	if !ok || len(v) != 4 {
		return tlv.Records{status(1, iso7816.SW_ERR_WRONG_DATA)}
	}
	sel, err := hex.DecodeString(v)
	if err != nil {
		return tlv.Records{status(1, iso7816.SW_ERR_WRONG_DATA)}
	}
	r.protocol = [2]byte{sel[0], sel[1]}

	out := tlv.Records{status(0, iso7816.SW_NO_ERROR)}
	if sel[1] == acr.Layer4 && r.field && r.card != nil {
		out = append(out, tlv.Record{Tag: acr.TagATR, Value: hex.EncodeToString(r.atr)})
	}
	return out
}

func status(object byte, sw iso7816.StatusWord) tlv.Record {
	return tlv.Record{Tag: acr.TagStatus, Value: fmt.Sprintf("%02X%04X", object, uint16(sw))}
}

// reply encodes records and a status word as an R-APDU. Records are built
// in order; a record with an empty value would end the stream, so replies
// never carry one.
func reply(records tlv.Records, sw iso7816.StatusWord) ([]byte, error) {
	stream, err := tlv.Build(records)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	data, err := hex.DecodeString(stream)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	rapdu := apdu.Rapdu{Data: data, SW1: sw.SW1(), SW2: sw.SW2()}
	return rapdu.Bytes()
}
