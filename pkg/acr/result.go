package acr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

// ExchangeResult is the decoded reply to a transparent exchange.
// Fields are empty when the reader did not send the data object.
type ExchangeResult struct {
	Status         ObjectStatus
	ResponseStatus []byte `tlv:"96"`
	CardResponse   []byte `tlv:"97"`
	ATR            []byte `tlv:"5F51"`
	Timer          []byte `tlv:"5F46" fmt:"int"`

	// Records holds the whole reply in stream order.
	Records tlv.Records
}

// ParseExchangeResult decodes a reply data field with the command set.
// Lengths are always one byte on this interface, so the stream goes through
// the registry codec rather than a BER-TLV decoder.
func ParseExchangeResult(data []byte) (*ExchangeResult, error) {
	records, err := Commands.Parse(data)
	if err != nil {
		return nil, err
	}
	return newExchangeResult(records)
}

func newExchangeResult(records tlv.Records) (*ExchangeResult, error) {
	res := &ExchangeResult{
		Status:  ObjectStatus{Status: 0x9000},
		Records: records,
	}

	fields := map[tlv.Tag]*[]byte{
		TagResponseStatus: &res.ResponseStatus,
		TagCardResponse:   &res.CardResponse,
		TagATR:            &res.ATR,
		TagTimer:          &res.Timer,
	}

	for _, tag := range []tlv.Tag{TagStatus, TagResponseStatus, TagCardResponse, TagATR, TagTimer} {
		v, ok := records.Get(tag)
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag.Hex(), err)
		}
		if tag == TagStatus {
			if res.Status, err = parseObjectStatus(raw); err != nil {
				return nil, err
			}
			continue
		}
		*fields[tag] = raw
	}

	return res, nil
}

// Describe generates a report of the exchange.
func (r *ExchangeResult) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== TRANSPARENT EXCHANGE ===\n")
	sb.WriteString("    - Status: " + r.Status.String())
	tlv.WriteStructFields(&sb, "Reply", r)
	return sb.String()
}
