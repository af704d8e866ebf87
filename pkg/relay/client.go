package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

// Client is an iso7816.Transmitter backed by a remote Server.
type Client struct {
	conn    *quic.Conn
	timeout time.Duration
}

// Dial connects to the server at cfg.Address.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	conn, err := quic.DialAddr(ctx, cfg.Address, clientTLS(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}
	return &Client{conn: conn, timeout: cfg.timeout()}, nil
}

// Transmit sends cmd to the remote reader and waits for its reply.
func (c *Client) Transmit(cmd []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(c.conn.Context(), c.timeout)
	defer cancel()

	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, c.fail("open stream", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		stream.SetDeadline(deadline)
	}

	if _, err := stream.Write(cmd); err != nil {
		stream.CancelRead(0)
		return nil, c.fail("send command", err)
	}
	if err := stream.Close(); err != nil {
		return nil, c.fail("send command", err)
	}

	msg, err := io.ReadAll(io.LimitReader(stream, maxMessage))
	if err != nil {
		return nil, c.fail("read reply", err)
	}
	if len(msg) == 0 {
		return nil, fmt.Errorf("read reply: empty message")
	}

	switch msg[0] {
	case statusOK:
		return msg[1:], nil
	case statusError:
		return nil, fmt.Errorf("%w: %s", ErrRemote, msg[1:])
	default:
		return nil, fmt.Errorf("read reply: unknown status 0x%02X", msg[0])
	}
}

// fail maps a refused connection to ErrBusy. The stream error may be a
// local timeout while the close reason sits on the connection context.
func (c *Client) fail(op string, err error) error {
	if isBusy(err) || isBusy(context.Cause(c.conn.Context())) {
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isBusy(err error) bool {
	var appErr *quic.ApplicationError
	return errors.As(err, &appErr) && appErr.Remote && appErr.ErrorCode == codeBusy
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "")
}
