package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/log"
	"github.com/quic-go/quic-go"
)

// Server forwards relayed commands to a local transport. Only one client
// owns the reader at a time: further connections are closed with
// codeBusy until it disconnects. Commands of that client go through one
// mutex, so the reader sees one at a time.
type Server struct {
	card     iso7816.Transmitter
	listener *quic.Listener
	timeout  time.Duration

	busy atomic.Bool
	mu   sync.Mutex
}

// Listen starts listening on cfg.Address.
func Listen(cfg Config, card iso7816.Transmitter) (*Server, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	tlsConfig, err := serverTLS(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate TLS config: %w", err)
	}

	listener, err := quic.ListenAddr(cfg.Address, tlsConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Address, err)
	}

	return &Server{card: card, listener: listener, timeout: cfg.timeout()}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx ends or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.busy.CompareAndSwap(false, true) {
			log.WarningLog("relay: refusing %s, reader in use", conn.RemoteAddr())
			conn.CloseWithError(codeBusy, "reader in use")
			continue
		}

		log.DefaultLog("relay: client %s connected", conn.RemoteAddr())
		go s.serveConn(ctx, conn)
	}
}

// Close stops the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) serveConn(ctx context.Context, conn *quic.Conn) {
	defer s.busy.Store(false)
	defer conn.CloseWithError(0, "")

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			log.ExtendedLog("relay: client %s gone: %v", conn.RemoteAddr(), err)
			return
		}
		go s.serveStream(stream)
	}
}

func (s *Server) serveStream(stream *quic.Stream) {
	defer stream.Close()
	stream.SetDeadline(time.Now().Add(s.timeout))

	cmd, err := io.ReadAll(io.LimitReader(stream, maxMessage))
	if err != nil {
		log.WarningLog("relay: read command: %v", err)
		return
	}

	s.mu.Lock()
	resp, err := s.card.Transmit(cmd)
	s.mu.Unlock()

	msg := append([]byte{statusOK}, resp...)
	if err != nil {
		msg = append([]byte{statusError}, err.Error()...)
	}
	if _, err := stream.Write(msg); err != nil {
		log.WarningLog("relay: write reply: %v", err)
	}
}
