package iso7816

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gregLibert/acr-transparent/pkg/log"
)

// CLIENT:
// The Client performs exactly one round trip per call: encode, transmit,
// split the reply into data and status word. It never retries and never
// reacts to the status word; both belong to the caller.
//
// One Client owns one transport handle. Calls are serialized by a mutex,
// so a second command cannot be issued while one is outstanding.

// ErrTransmit wraps every failure reported by the Transmitter.
var ErrTransmit = errors.New("transmission failed")

// Transmitter abstracts the physical reader connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// TransmitterFunc adapts a function to Transmitter.
type TransmitterFunc func(cmd []byte) ([]byte, error)

// Transmit calls f(cmd).
func (f TransmitterFunc) Transmit(cmd []byte) ([]byte, error) { return f(cmd) }

// Client manages the request/response exchange with the reader.
type Client struct {
	Card Transmitter

	mu sync.Mutex
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// SendRecv transmits cmd and blocks until the reader answers.
func (c *Client) SendRecv(cmd *CommandAPDU) (*ResponseAPDU, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log.TraceLog("<< %s", spacedHex(rawCmd))

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransmit, err)
	}

	log.TraceLog(">> %s", spacedHex(rawResp))

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, fmt.Errorf("invalid reply to %s: %w", cmd.Instruction.Raw, err)
	}
	return resp, nil
}

// SendRecvContext is SendRecv bounded by ctx. Nothing is sent once ctx has
// ended. When ctx ends during the exchange it returns ctx.Err(); the
// transport call keeps running in the background and the Client stays busy
// until the transport returns.
func (c *Client) SendRecvContext(ctx context.Context, cmd *CommandAPDU) (*ResponseAPDU, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		resp *ResponseAPDU
		err  error
	}

	done := make(chan result, 1)
	go func() {
		resp, err := c.SendRecv(cmd)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ContextClient runs every SendRecv of a Client under one context.
type ContextClient struct {
	client *Client
	ctx    context.Context
}

// WithContext returns a view of c whose SendRecv gives up when ctx ends.
func (c *Client) WithContext(ctx context.Context) *ContextClient {
	return &ContextClient{client: c, ctx: ctx}
}

// SendRecv calls SendRecvContext with the bound context.
func (b *ContextClient) SendRecv(cmd *CommandAPDU) (*ResponseAPDU, error) {
	return b.client.SendRecvContext(b.ctx, cmd)
}
