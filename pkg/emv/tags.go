// Package emv names the EMV data elements a terminal exchanges with a
// contactless card, for diagnostics of transparent-session traffic.
package emv

import (
	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

// Tags is the EMV naming registry. It is separate from the reader command
// set: tag '95' is the TVR here and the transparent exchange there.
var Tags = tlv.MustRegistry(
	tlv.Entry{Tag: 0x4F, Name: "AID"},
	tlv.Entry{Tag: 0x50, Name: "ApplicationLabel"},
	tlv.Entry{Tag: 0x57, Name: "Track2Equivalent"},
	tlv.Entry{Tag: 0x5A, Name: "PAN"},
	tlv.Entry{Tag: 0x82, Name: "AIP"},
	tlv.Entry{Tag: 0x84, Name: "DFName"},
	tlv.Entry{Tag: 0x8A, Name: "AuthorisationResponseCode"},
	tlv.Entry{Tag: 0x95, Name: "TVR", Describe: DescribeTVR},
	tlv.Entry{Tag: 0x9A, Name: "TransactionDate"},
	tlv.Entry{Tag: 0x9B, Name: "TSI"},
	tlv.Entry{Tag: 0x9C, Name: "TransactionType", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x5F24, Name: "ExpirationDate"},
	tlv.Entry{Tag: 0x5F2A, Name: "TransactionCurrencyCode"},
	tlv.Entry{Tag: 0x5F34, Name: "PANSequenceNumber", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x9F02, Name: "AmountAuthorised"},
	tlv.Entry{Tag: 0x9F03, Name: "AmountOther"},
	tlv.Entry{Tag: 0x9F10, Name: "IssuerApplicationData"},
	tlv.Entry{Tag: 0x9F1A, Name: "TerminalCountryCode"},
	tlv.Entry{Tag: 0x9F26, Name: "ApplicationCryptogram"},
	tlv.Entry{Tag: 0x9F27, Name: "CryptogramInformationData"},
	tlv.Entry{Tag: 0x9F33, Name: "TerminalCapabilities"},
	tlv.Entry{Tag: 0x9F34, Name: "CVMResults"},
	tlv.Entry{Tag: 0x9F35, Name: "TerminalType", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x9F36, Name: "ATC", Type: tlv.TypeInt},
	tlv.Entry{Tag: 0x9F37, Name: "UnpredictableNumber"},
	tlv.Entry{Tag: 0x9F66, Name: "TTQ"},
	tlv.Entry{Tag: 0x9F6E, Name: "FormFactorIndicator"},
)

// Dump renders EMV data elements with the TVR expanded.
func Dump(data []byte) (string, error) {
	records, err := Tags.Parse(data)
	if err != nil {
		return "", err
	}
	return tlv.Dump(records, Tags, 26), nil
}
