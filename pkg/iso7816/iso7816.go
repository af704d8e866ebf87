/*
Package iso7816 implements the APDU layer used to talk to a PC/SC reader:
command and response framing, status words and a one-shot request/response
client.

# Fundamentals

The communication is strictly synchronous:
 1. The host sends a Command APDU (CLA INS P1 P2 Lc Data).
 2. The reader (or the card behind it) returns a Response APDU (Data SW1 SW2).

Reader escape commands use CLA 0xFF. They are executed by the reader itself
and work even when no card is in the field.

# Status Words

The client does not interpret status words. 0x9000 conventionally means
success; anything else is passed back untouched for the caller to judge.

# Usage Example: one escape command

	client := iso7816.NewClient(transport)

	cmd := iso7816.NewCommandAPDU(
	    iso7816.NewClass(iso7816.ReaderEscape),
	    iso7816.MustInstruction(iso7816.INS_DIRECT_TRANSMIT),
	    0x00, 0x00,
	    []byte{0x81, 0x00}, // start transparent session
	)

	resp, err := client.SendRecv(cmd)
	if err != nil {
	    log.Fatal(err)
	}

	fmt.Println(iso7816.FormatCommand(cmd))
	fmt.Println(iso7816.FormatResponse(resp))
*/
package iso7816
