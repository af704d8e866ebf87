package iso7816

import (
	"fmt"
	"strings"
)

// TRACE FORMAT:
// Exchanges are logged one line per direction, bytes in spaced uppercase hex:
//
//	<< FF C2 00 00 02 81 00
//	>> C0 03 00 90 00 90 00
//
// "<<" is what the host sent, ">>" what came back. The format is stable so
// logs can be compared line by line between runs.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with status 9000.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Lines renders the transaction as trace lines.
func (t *Transaction) Lines() []string {
	var lines []string
	if t.Command != nil {
		lines = append(lines, FormatCommand(t.Command))
	}
	if t.Response != nil {
		lines = append(lines, FormatResponse(t.Response))
	}
	return lines
}

// Trace is a sequence of transactions in the order they were sent.
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the final transaction was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Lines renders every transaction, in order.
func (t Trace) Lines() []string {
	var lines []string
	for i := range t {
		lines = append(lines, t[i].Lines()...)
	}
	return lines
}

// FormatCommand renders a command as a "<<" trace line.
// An unencodable command is shown with its error instead of bytes.
func FormatCommand(c *CommandAPDU) string {
	raw, err := c.Bytes()
	if err != nil {
		return fmt.Sprintf("<< (%v)", err)
	}
	return "<< " + spacedHex(raw)
}

// FormatResponse renders a response as a ">>" trace line.
func FormatResponse(r *ResponseAPDU) string {
	return ">> " + spacedHex(r.Bytes())
}

func spacedHex(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
