package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gregLibert/acr-transparent/pkg/acr"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/simulator"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, card iso7816.Transmitter) *Server {
	t.Helper()

	srv, err := Listen(Config{Address: "127.0.0.1:0"}, card)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		<-done
	})
	return srv
}

func dial(t *testing.T, srv *Server) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, Config{Address: srv.Addr().String(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRelaySession(t *testing.T) {
	reader := simulator.New(simulator.WithCard(simulator.NewMemoryCard(8)))
	client := dial(t, startServer(t, reader))

	ctl := acr.NewController(iso7816.NewClient(client))
	require.NoError(t, ctl.StartTransparentSession())
	require.NoError(t, ctl.TurnOnField())
	assert.True(t, reader.Field())

	res, err := ctl.Transceive([]byte{0x26})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x44, 0x00}, res.CardResponse)

	require.NoError(t, ctl.TurnOffField())
	require.NoError(t, ctl.EndTransparentSession())
	assert.False(t, reader.Session())
	assert.Equal(t, 5, reader.Commands())
}

func TestRelayRaw(t *testing.T) {
	client := dial(t, startServer(t, simulator.New()))

	resp, err := client.Transmit(tlv.Hex("FF C2 00 00 02 81 00"))
	require.NoError(t, err)
	assert.Equal(t, tlv.Hex("C0 03 00 90 00 90 00"), resp)
}

func TestRelayRemoteError(t *testing.T) {
	failing := iso7816.TransmitterFunc(func([]byte) ([]byte, error) {
		return nil, errors.New("reader removed")
	})
	client := dial(t, startServer(t, failing))

	_, err := client.Transmit(tlv.Hex("FF C2 00 00 02 81 00"))
	require.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "reader removed")

	_, err = iso7816.NewClient(client).SendRecv(acr.Envelope(acr.P2ManageSession, []byte{0x81, 0x00}))
	assert.ErrorIs(t, err, iso7816.ErrTransmit)
}

func TestRelaySingleClient(t *testing.T) {
	srv := startServer(t, simulator.New())
	manage := tlv.Hex("FF C2 00 00 02 81 00")

	first := dial(t, srv)
	_, err := first.Transmit(manage)
	require.NoError(t, err)

	second := dial(t, srv)
	_, err = second.Transmit(manage)
	require.ErrorIs(t, err, ErrBusy)

	_, err = first.Transmit(manage)
	require.NoError(t, err, "owner keeps the reader")

	require.NoError(t, first.Close())
	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		next, err := Dial(ctx, Config{Address: srv.Addr().String(), Timeout: time.Second})
		if err != nil {
			return false
		}
		defer next.Close()
		_, err = next.Transmit(manage)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
}

func TestConfigRequiresAddress(t *testing.T) {
	_, err := Listen(Config{}, simulator.New())
	assert.Error(t, err)

	_, err = Dial(context.Background(), Config{})
	assert.Error(t, err)
}
