/*
Package acr drives ACS contactless readers (ACR12xx, ACR15xx) in
transparent session mode.

# Envelope

Every operation is a reader escape command carrying a TLV stream:

	FF C2 00 P2 Lc <TLV records>

	P2 = 00  Manage session (start, end, RF field, parameters, timer)
	P2 = 01  Transparent exchange (frame sent to the card in the field)
	P2 = 02  Switch protocol

The reader answers with its own TLV stream followed by SW1 SW2. The stream
starts with a Status data object 'C0 03 XX SW1 SW2' where XX is the index
of the data object that failed (00 when none did).

# Session

A Controller owns the session and RF field state and validates every
operation against it before anything is sent:

	ctl := acr.NewController(iso7816.NewClient(transport))

	if err := ctl.StartTransparentSession(); err != nil { ... }
	if err := ctl.TurnOnField(); err != nil { ... }
	res, err := ctl.Transceive([]byte{0x26}) // REQA
	...
	if err := ctl.EndTransparentSession(); err != nil { ... }

A session is normally closed by EndTransparentSession. Detach is the one
exception: it leaves the reader in its session with the field off, so a
later run can power the target again without renegotiating.
*/
package acr
