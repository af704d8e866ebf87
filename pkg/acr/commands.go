package acr

import (
	"fmt"

	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

// Operation names of the reader command set.
const (
	OpStartSession     = "startSession"
	OpEndSession       = "endSession"
	OpRFOff            = "rfOff"
	OpRFOn             = "rfOn"
	OpSwitchProtocol   = "switchProtocol"
	OpTransmitRecvFlag = "transmitRecvFlag"
	OpSendRecv         = "sendRecv"
	OpBitFraming       = "bitFraming"
	OpTransmit         = "transmit"
	OpRecv             = "recv"
	OpSetParameter     = "setParameter"
	OpTimer            = "timer"
)

// Tags that the controller reads back from replies.
const (
	TagStatus         tlv.Tag = 0xC0
	TagResponseStatus tlv.Tag = 0x96
	TagCardResponse   tlv.Tag = 0x97
	TagATR            tlv.Tag = 0x5F51
	TagTimer          tlv.Tag = 0x5F46
	TagSetParameter   tlv.Tag = 0xFF6E
)

// Commands is the transparent session vocabulary.
var Commands = tlv.MustRegistry(
	tlv.Entry{Tag: 0x81, Name: OpStartSession},
	tlv.Entry{Tag: 0x82, Name: OpEndSession},
	tlv.Entry{Tag: 0x83, Name: OpRFOff},
	tlv.Entry{Tag: 0x84, Name: OpRFOn},
	tlv.Entry{Tag: 0x8F, Name: OpSwitchProtocol},
	tlv.Entry{Tag: 0x90, Name: OpTransmitRecvFlag},
	tlv.Entry{Tag: 0x95, Name: OpSendRecv},
	tlv.Entry{Tag: 0x92, Name: OpBitFraming},
	tlv.Entry{Tag: 0x93, Name: OpTransmit},
	tlv.Entry{Tag: 0x94, Name: OpRecv},
	tlv.Entry{Tag: TagSetParameter, Name: OpSetParameter, Type: tlv.TypeTLV},
	tlv.Entry{Tag: 0x01, Name: "frameSizeIFD", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x02, Name: "frameSizeICC", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x03, Name: "FWTI", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x04, Name: "maxCommSpeedIFD"},
	tlv.Entry{Tag: 0x05, Name: "maxCommSpeedICC"},
	tlv.Entry{Tag: 0x06, Name: "ModulationIndex"},
	tlv.Entry{Tag: 0x07, Name: "PCB"},
	tlv.Entry{Tag: 0x08, Name: "CID"},
	tlv.Entry{Tag: TagTimer, Name: OpTimer},
	tlv.Entry{Tag: TagATR, Name: "ATR"},
	tlv.Entry{Tag: TagStatus, Name: "Status", Describe: describeStatus},
	tlv.Entry{Tag: TagResponseStatus, Name: "responseStatus"},
	tlv.Entry{Tag: TagCardResponse, Name: "cardResponse"},
)

// Envelope P2 values.
const (
	P2ManageSession  byte = 0x00
	P2Exchange       byte = 0x01
	P2SwitchProtocol byte = 0x02
)

// Protocol selectors for SwitchProtocol.
const (
	StandardISO14443A byte = 0x00
	StandardISO14443B byte = 0x01
	StandardFeliCa    byte = 0x03

	LayerParameters byte = 0x00 // switch parameters only
	Layer2          byte = 0x02
	Layer3          byte = 0x03
	Layer4          byte = 0x04 // activates the card (RATS / ATTRIB)
)

// Envelope wraps a TLV payload in the reader escape command.
func Envelope(p2 byte, data []byte) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(
		iso7816.NewClass(iso7816.ReaderEscape),
		iso7816.MustInstruction(iso7816.INS_DIRECT_TRANSMIT),
		0x00, p2, data,
	)
}

// Dump renders a reply data field against the command set.
func Dump(data []byte) (string, error) {
	records, err := Commands.Parse(data)
	if err != nil {
		return "", err
	}
	return tlv.Dump(records, Commands, 16), nil
}

func describeStatus(value []byte) []string {
	st, err := parseObjectStatus(value)
	if err != nil {
		return []string{err.Error()}
	}
	return []string{st.String()}
}

// ObjectStatus is the content of the 'C0' Status data object.
type ObjectStatus struct {
	// Object is the 1-based index of the data object that failed, 0 when
	// the error is not tied to one.
	Object byte
	Status iso7816.StatusWord
}

// IsSuccess reports whether the reader processed every data object.
func (s ObjectStatus) IsSuccess() bool {
	return s.Status.IsSuccess()
}

func (s ObjectStatus) String() string {
	if s.Object == 0 {
		return s.Status.Verbose()
	}
	return fmt.Sprintf("data object %d: %s", s.Object, s.Status.Verbose())
}

func parseObjectStatus(value []byte) (ObjectStatus, error) {
	if len(value) != 3 {
		return ObjectStatus{}, fmt.Errorf("status object: %d bytes, want 3", len(value))
	}
	return ObjectStatus{Object: value[0], Status: iso7816.NewStatusWord(value[1], value[2])}, nil
}
