package acr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/acr-transparent/pkg/acr"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/simulator"
	"github.com/gregLibert/acr-transparent/pkg/tlv"
)

func TestControllerAgainstSimulator(t *testing.T) {
	card := simulator.NewMemoryCard(8)
	card.Pages[4] = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
	reader := simulator.New(simulator.WithCard(card))
	ctl := acr.NewController(iso7816.NewClient(reader))

	if err := ctl.StartTransparentSession(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := ctl.TurnOnField(); err != nil {
		t.Fatalf("field on: %v", err)
	}
	if !reader.Session() || !reader.Field() {
		t.Fatal("Reader should be in session with the field on")
	}
	if err := ctl.SwitchProtocol(acr.StandardISO14443A, acr.Layer3); err != nil {
		t.Fatalf("switch protocol: %v", err)
	}

	res, err := ctl.Transceive([]byte{0x30, 0x04})
	if err != nil {
		t.Fatalf("transceive: %v", err)
	}
	if diff := cmp.Diff([]byte{0xDE, 0xAD, 0xBE, 0xEF}, res.CardResponse[:4]); diff != "" {
		t.Errorf("Page mismatch (-want +got):\n%s", diff)
	}

	_, err = ctl.Transceive([]byte{0x60})
	var se *acr.StatusError
	if !errors.As(err, &se) || se.Status != iso7816.SW_ERR_NO_CARD_RESPONSE {
		t.Errorf("Silent card: got %v", err)
	}

	if err := ctl.TurnOffField(); err != nil {
		t.Fatalf("field off: %v", err)
	}
	if err := ctl.EndTransparentSession(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if reader.Session() || reader.Field() {
		t.Error("Reader should be idle")
	}
}

func TestControllerParametersReachReader(t *testing.T) {
	reader := simulator.New()
	ctl := acr.NewController(iso7816.NewClient(reader))

	if err := ctl.StartTransparentSession(); err != nil {
		t.Fatal(err)
	}
	params := tlv.Records{{Tag: 0x01, Value: "08"}, {Tag: 0x06, Value: "0F"}}
	if err := ctl.SetParameters(params...); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if diff := cmp.Diff(params, reader.Parameters()); diff != "" {
		t.Errorf("Parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerRejectedByReader(t *testing.T) {
	reader := simulator.New()
	ctl := acr.NewController(iso7816.NewClient(reader))

	reader.RejectNext(iso7816.SW_ERR_EXEC_NO_INFO)
	err := ctl.StartTransparentSession()

	var se *acr.StatusError
	if !errors.As(err, &se) || !se.Embedded || se.Object != 1 {
		t.Fatalf("Expected embedded StatusError, got %v", err)
	}
	if ctl.State() != acr.StateIdle {
		t.Errorf("State = %s, want Idle", ctl.State())
	}

	if err := ctl.StartTransparentSession(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestControllerCancelled(t *testing.T) {
	reader := simulator.New()
	ctx, cancel := context.WithCancel(context.Background())
	ctl := acr.NewController(iso7816.NewClient(reader).WithContext(ctx))

	if err := ctl.StartTransparentSession(); err != nil {
		t.Fatalf("StartTransparentSession: %v", err)
	}

	cancel()
	if err := ctl.TurnOnField(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected Canceled, got %v", err)
	}
	if ctl.Field() != acr.FieldOff || reader.Field() {
		t.Error("Cancelled rfOn must not reach the reader")
	}
	if reader.Commands() != 1 {
		t.Errorf("Reader saw %d commands, want 1", reader.Commands())
	}
}
