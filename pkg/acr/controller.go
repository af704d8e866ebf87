package acr

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/log"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

// State is the session state of a Controller.
type State int

const (
	StateIdle State = iota
	StateSessionOpen
	// StateDetached: the reader is left in its session with the field off
	// and the Controller no longer drives it.
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSessionOpen:
		return "SessionOpen"
	case StateDetached:
		return "Detached"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Field is the RF field state, tracked inside an open session.
type Field int

const (
	FieldOff Field = iota
	FieldOn
)

func (f Field) String() string {
	if f == FieldOn {
		return "on"
	}
	return "off"
}

// MaxFrameLen is the largest frame Transceive accepts: the envelope data is
// one TLV record, so two bytes go to its tag and length.
const MaxFrameLen = iso7816.MaxShortLc - 2

// Exchanger sends one command and returns the reply. *iso7816.Client
// implements it.
type Exchanger interface {
	SendRecv(cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error)
}

// Controller sequences transparent session operations. State changes only
// after the reader confirmed an operation; a failed exchange leaves both
// the session and the field state as they were.
type Controller struct {
	client Exchanger

	mu    sync.Mutex
	state State
	field Field
	trace iso7816.Trace
}

// NewController returns a Controller in StateIdle with the field off.
func NewController(client Exchanger) *Controller {
	return &Controller{client: client}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Field returns the current RF field state.
func (c *Controller) Field() Field {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.field
}

// Trace returns a copy of every exchange completed so far.
func (c *Controller) Trace() iso7816.Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(iso7816.Trace(nil), c.trace...)
}

// StartTransparentSession opens the session: Idle to SessionOpen.
func (c *Controller) StartTransparentSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpStartSession, StateIdle); err != nil {
		return err
	}
	if _, err := c.manage(OpStartSession); err != nil {
		return err
	}

	c.state = StateSessionOpen
	c.field = FieldOff
	log.UsefulLog("transparent session started")
	return nil
}

// EndTransparentSession closes the session: SessionOpen to Idle. The
// reader drops the field when the session ends.
func (c *Controller) EndTransparentSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpEndSession, StateSessionOpen); err != nil {
		return err
	}
	if _, err := c.manage(OpEndSession); err != nil {
		return err
	}

	c.state = StateIdle
	c.field = FieldOff
	log.UsefulLog("transparent session ended")
	return nil
}

// TurnOnField switches the RF field on.
func (c *Controller) TurnOnField() error {
	return c.setField(OpRFOn, FieldOn)
}

// TurnOffField switches the RF field off.
func (c *Controller) TurnOffField() error {
	return c.setField(OpRFOff, FieldOff)
}

func (c *Controller) setField(op string, want Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(op, StateSessionOpen); err != nil {
		return err
	}
	if _, err := c.manage(op); err != nil {
		return err
	}

	c.field = want
	log.ExtendedLog("RF field %s", want)
	return nil
}

// Detach releases the Controller without ending the session. The field
// must be off. Nothing is sent; every later call fails with ErrInvalidState.
func (c *Controller) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("detach", StateSessionOpen); err != nil {
		return err
	}
	if c.field != FieldOff {
		return fmt.Errorf("%w: detach with the field on", ErrInvalidState)
	}

	c.state = StateDetached
	log.UsefulLog("detached, transparent session left open with the field off")
	return nil
}

// SwitchProtocol selects the card protocol and the layer to activate.
func (c *Controller) SwitchProtocol(standard, layer byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpSwitchProtocol, StateSessionOpen); err != nil {
		return err
	}

	data, err := Commands.BuildByName(OpSwitchProtocol, standard, layer)
	if err != nil {
		return err
	}
	_, err = c.exchange(OpSwitchProtocol, P2SwitchProtocol, data)
	return err
}

// Transceive sends frame to the card in the field and returns the decoded
// reply. A card that does not answer is reported by the reader as a
// StatusError with SW_ERR_NO_CARD_RESPONSE.
func (c *Controller) Transceive(frame []byte) (*ExchangeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpSendRecv, StateSessionOpen); err != nil {
		return nil, err
	}
	if c.field != FieldOn {
		return nil, fmt.Errorf("%w: %s with the field off", ErrInvalidState, OpSendRecv)
	}
	if len(frame) > MaxFrameLen {
		return nil, &tlv.BuildError{Err: tlv.ErrPayloadTooLarge, Tag: 0x95, Length: len(frame)}
	}

	data, err := Commands.BuildByName(OpSendRecv, frame...)
	if err != nil {
		return nil, err
	}
	records, err := c.exchange(OpSendRecv, P2Exchange, data)
	if err != nil {
		return nil, err
	}
	return newExchangeResult(records)
}

// SetParameters sends a Set Parameters data object ('FF6E') holding params.
// Records are built in order; building stops at the first empty value.
func (c *Controller) SetParameters(params ...tlv.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpSetParameter, StateSessionOpen); err != nil {
		return err
	}

	nested, err := tlv.Build(params)
	if err != nil {
		return err
	}
	value, err := hex.DecodeString(nested)
	if err != nil {
		return fmt.Errorf("%s: %w", OpSetParameter, err)
	}
	data, err := Commands.BuildByName(OpSetParameter, value...)
	if err != nil {
		return err
	}
	_, err = c.exchange(OpSetParameter, P2ManageSession, data)
	return err
}

// SetTimeout sets the reader timer ('5F46') used for following exchanges,
// in microseconds on the wire.
func (c *Controller) SetTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(OpTimer, StateSessionOpen); err != nil {
		return err
	}

	us := d.Microseconds()
	if us < 0 || us > 0xFFFFFFFF {
		return fmt.Errorf("timer %s out of range", d)
	}
	var value [4]byte
	binary.BigEndian.PutUint32(value[:], uint32(us))

	data, err := Commands.BuildByName(OpTimer, value[:]...)
	if err != nil {
		return err
	}
	_, err = c.exchange(OpTimer, P2ManageSession, data)
	return err
}

// DecodeParameters parses the value of a Set Parameters data object.
func DecodeParameters(value []byte) (tlv.Records, error) {
	return Commands.Parse(value)
}

func (c *Controller) require(op string, want State) error {
	if c.state != want {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, c.state)
	}
	return nil
}

// manage sends a Manage Session data object with an empty value.
func (c *Controller) manage(op string) (tlv.Records, error) {
	data, err := Commands.BuildByName(op)
	if err != nil {
		return nil, err
	}
	return c.exchange(op, P2ManageSession, data)
}

// exchange sends one envelope and checks both status layers. It is called
// with c.mu held.
func (c *Controller) exchange(op string, p2 byte, data []byte) (tlv.Records, error) {
	cmd := Envelope(p2, data)

	resp, err := c.client.SendRecv(cmd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.trace = append(c.trace, iso7816.Transaction{Command: cmd, Response: resp})

	if !resp.Status.IsSuccess() {
		log.WarningLog("%s rejected: %s", op, resp.Status.Verbose())
		return nil, &StatusError{Op: op, Status: resp.Status}
	}

	records, err := Commands.Parse(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: reply: %w", op, err)
	}

	if v, ok := records.Get(TagStatus); ok {
		raw, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: reply: %w", op, err)
		}
		st, err := parseObjectStatus(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: reply: %w", op, err)
		}
		if !st.IsSuccess() {
			log.WarningLog("%s rejected: %s", op, st)
			return nil, &StatusError{Op: op, Status: st.Status, Object: st.Object, Embedded: true}
		}
	}

	log.DebugLog("%s ok", op)
	return records, nil
}
