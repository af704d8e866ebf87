package emv

import (
	"fmt"
	"strings"

	"github.com/gregLibert/acr-transparent/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// RESPONSE MESSAGE TEMPLATE FORMAT 2 (Tag '77'):
// The BER-TLV wrapper cards use to answer GPO and GENERATE AC. Only the
// fields needed to follow a transaction in a trace are mapped; the rest is
// kept in Unknown.

// ResponseTemplate is the content of a '77' template.
type ResponseTemplate struct {
	AIP                       []byte `tlv:"82"`
	CryptogramInformationData []byte `tlv:"9F27"`
	ATC                       []byte `tlv:"9F36" fmt:"int"`
	ApplicationCryptogram     []byte `tlv:"9F26"`
	IssuerApplicationData     []byte `tlv:"9F10"`
	Track2Equivalent          []byte `tlv:"57"`
	PANSequenceNumber         []byte `tlv:"5F34" fmt:"int"`
	FormFactorIndicator       []byte `tlv:"9F6E"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseResponseTemplate maps a card reply onto a ResponseTemplate. The '77'
// wrapper is optional.
func ParseResponseTemplate(data []byte) (*ResponseTemplate, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	processingPackets := packets
	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, "77") {
		processingPackets = packets[0].TLVs
	}

	rt := &ResponseTemplate{}
	if err := tlv.UnmarshalFromPackets(processingPackets, rt); err != nil {
		return nil, fmt.Errorf("failed to map structure: %w", err)
	}
	return rt, nil
}

// Describe generates a report of the template content.
func (r *ResponseTemplate) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV RESPONSE TEMPLATE ===")
	tlv.WriteStructFields(&sb, "Response", r)
	return sb.String()
}
