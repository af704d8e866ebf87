package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gregLibert/acr-transparent/pkg/acr"
	"github.com/gregLibert/acr-transparent/pkg/emv"
	"github.com/gregLibert/acr-transparent/pkg/iso7816"
	"github.com/gregLibert/acr-transparent/pkg/log"
	"github.com/gregLibert/acr-transparent/pkg/reader"
	"github.com/gregLibert/acr-transparent/pkg/relay"
	"github.com/gregLibert/acr-transparent/pkg/simulator"
	"github.com/gregLibert/acr-transparent/pkg/transcript"
	"k8s.io/klog/v2"
)

const usage = `usage: acr [flags] <command> [args]

commands:
  list               list PC/SC readers
  session            open and close a transparent session
  field-on           switch the RF field on, hold, switch it off
  field-off          switch the RF field off and leave the session open
  cycle              field off, wait, field on, hold, field off
  transceive <hex>   send one frame to the card in the field
  decode <hex>       decode a reader reply data field
  decode-emv <hex>   decode EMV data elements
  serve              expose the reader over QUIC

flags:
`

type options struct {
	match    string
	escape   bool
	simulate bool
	record   string
	replay   string
	relay    string
	listen   string
	hold     time.Duration
	delay    time.Duration
	protocol string
	layer    uint
	timeout  time.Duration
}

func main() {
	var opts options

	klog.InitFlags(nil)
	flag.StringVar(&opts.match, "reader", os.Getenv("ACR_READER"), "reader name filter (env ACR_READER)")
	flag.BoolVar(&opts.escape, "escape", false, "send commands through SCardControl even when a card protocol is active")
	flag.BoolVar(&opts.simulate, "simulate", false, "use the in-memory reader")
	flag.StringVar(&opts.record, "record", "", "record exchanges to this CBOR file")
	flag.StringVar(&opts.replay, "replay", "", "replay exchanges from this CBOR file")
	flag.StringVar(&opts.relay, "relay", os.Getenv("ACR_RELAY"), "use a remote reader at host:port (env ACR_RELAY)")
	flag.StringVar(&opts.listen, "listen", "0.0.0.0:4433", "serve: listen address")
	flag.DurationVar(&opts.hold, "hold", 0, "how long to keep the field on, 0 until interrupted")
	flag.DurationVar(&opts.delay, "delay", time.Second, "cycle: time with the field off")
	flag.StringVar(&opts.protocol, "protocol", "", "transceive: switch protocol first (a, b, felica)")
	flag.UintVar(&opts.layer, "layer", uint(acr.Layer3), "transceive: protocol layer")
	flag.DurationVar(&opts.timeout, "timeout", 0, "reader timer for transparent exchanges")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	defer klog.Flush()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.ErrorLog("%s: %v", flag.Arg(0), err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, command string, args []string) error {
	switch command {
	case "list":
		return listReaders()
	case "decode":
		return decode(args, acr.Dump)
	case "decode-emv":
		return decode(args, decodeEMV)
	case "serve":
		return serve(ctx, opts)
	}

	var op func(*acr.Controller) error
	switch command {
	case "session":
		op = func(*acr.Controller) error { return nil }
	case "field-on":
		op = func(ctl *acr.Controller) error { return fieldOn(ctx, ctl, opts) }
	case "field-off":
		return withTransport(ctx, opts, fieldOff)
	case "cycle":
		op = func(ctl *acr.Controller) error { return cycle(ctx, ctl, opts) }
	case "transceive":
		if len(args) != 1 {
			return fmt.Errorf("expected one hex frame")
		}
		frame, err := parseHex(args[0])
		if err != nil {
			return err
		}
		op = func(ctl *acr.Controller) error { return transceive(ctl, opts, frame) }
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return withTransport(ctx, opts, func(ctl *acr.Controller) error {
		return inSession(ctl, opts, op)
	})
}

// withTransport opens the transport chain, runs fn and prints the trace.
func withTransport(ctx context.Context, opts options, fn func(*acr.Controller) error) error {
	card, closeFn, err := openTransport(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	var rec *transcript.Recorder
	if opts.record != "" {
		rec = transcript.NewRecorder(card, describeTransport(opts))
		card = rec
	}

	// An interrupt abandons a hung exchange; the reader keeps whatever
	// state it reached.
	ctl := acr.NewController(iso7816.NewClient(card).WithContext(ctx))
	runErr := fn(ctl)

	for _, line := range ctl.Trace().Lines() {
		fmt.Println(line)
	}

	if rec != nil {
		if err := saveTranscript(rec, opts.record); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Printf(">> Recorded %d exchanges to %s\n", len(rec.Transcript().Exchanges), opts.record)
	}
	return runErr
}

// inSession runs op between start and end of a transparent session. The
// session is ended even when op fails.
func inSession(ctl *acr.Controller, opts options, op func(*acr.Controller) error) error {
	if err := ctl.StartTransparentSession(); err != nil {
		return err
	}
	if opts.timeout > 0 {
		if err := ctl.SetTimeout(opts.timeout); err != nil {
			return errors.Join(err, endSession(ctl))
		}
	}

	opErr := op(ctl)
	return errors.Join(opErr, endSession(ctl))
}

func endSession(ctl *acr.Controller) error {
	if ctl.Field() == acr.FieldOn {
		if err := ctl.TurnOffField(); err != nil {
			log.WarningLog("field off before end: %v", err)
		}
	}
	return ctl.EndTransparentSession()
}

func fieldOn(ctx context.Context, ctl *acr.Controller, opts options) error {
	if err := ctl.TurnOnField(); err != nil {
		return err
	}
	fmt.Println(">> RF field on")
	hold(ctx, opts.hold)
	return ctl.TurnOffField()
}

func fieldOff(ctl *acr.Controller) error {
	if err := ctl.StartTransparentSession(); err != nil {
		return err
	}
	if err := ctl.TurnOffField(); err != nil {
		return errors.Join(err, ctl.EndTransparentSession())
	}
	fmt.Println(">> RF field off, session left open")
	return ctl.Detach()
}

func cycle(ctx context.Context, ctl *acr.Controller, opts options) error {
	if err := ctl.TurnOffField(); err != nil {
		return err
	}
	hold(ctx, opts.delay)
	return fieldOn(ctx, ctl, opts)
}

func transceive(ctl *acr.Controller, opts options, frame []byte) error {
	if err := ctl.TurnOnField(); err != nil {
		return err
	}

	if opts.protocol != "" {
		standard, err := parseStandard(opts.protocol)
		if err != nil {
			return err
		}
		if err := ctl.SwitchProtocol(standard, byte(opts.layer)); err != nil {
			return err
		}
	}

	res, err := ctl.Transceive(frame)
	if err != nil {
		return err
	}
	fmt.Println(res.Describe())
	return nil
}

func serve(ctx context.Context, opts options) error {
	if opts.relay != "" {
		return fmt.Errorf("serve needs a local reader, not a relay")
	}

	card, closeFn, err := openTransport(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	srv, err := relay.Listen(relay.Config{Address: opts.listen}, card)
	if err != nil {
		return err
	}
	defer srv.Close()

	fmt.Printf(">> Serving %s on %s\n", describeTransport(opts), srv.Addr())
	return srv.Serve(ctx)
}

func listReaders() error {
	names, err := reader.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(">> No reader found.")
	}
	for i, name := range names {
		fmt.Printf("[%d] %s\n", i, name)
	}
	return nil
}

func decode(args []string, fn func([]byte) (string, error)) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one hex argument")
	}
	data, err := parseHex(args[0])
	if err != nil {
		return err
	}
	out, err := fn(data)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func decodeEMV(data []byte) (string, error) {
	if len(data) > 0 && data[0] == 0x77 {
		rt, err := emv.ParseResponseTemplate(data)
		if err != nil {
			return "", err
		}
		return rt.Describe(), nil
	}
	return emv.Dump(data)
}

// openTransport returns the innermost transport selected by the flags and
// its cleanup.
func openTransport(ctx context.Context, opts options) (iso7816.Transmitter, func(), error) {
	switch {
	case opts.replay != "":
		f, err := os.Open(opts.replay)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		t, err := transcript.Load(f)
		if err != nil {
			return nil, nil, err
		}
		return transcript.NewReplayer(t), func() {}, nil

	case opts.simulate:
		return simulator.New(simulator.WithCard(simulator.NewMemoryCard(16))), func() {}, nil

	case opts.relay != "":
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := relay.Dial(dialCtx, relay.Config{Address: opts.relay})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil

	default:
		s, err := reader.Connect(reader.Config{Match: opts.match, Escape: opts.escape})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.WarningLog("close reader: %v", err)
			}
		}, nil
	}
}

func describeTransport(opts options) string {
	switch {
	case opts.replay != "":
		return "replay " + opts.replay
	case opts.simulate:
		return "simulated reader"
	case opts.relay != "":
		return "relay " + opts.relay
	case opts.match != "":
		return "reader matching " + opts.match
	default:
		return "first reader"
	}
}

func saveTranscript(rec *transcript.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rec.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func hold(ctx context.Context, d time.Duration) {
	if d <= 0 {
		fmt.Println(">> Holding, interrupt to continue")
		<-ctx.Done()
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "").Replace(s)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return data, nil
}

func parseStandard(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "a":
		return acr.StandardISO14443A, nil
	case "b":
		return acr.StandardISO14443B, nil
	case "felica":
		return acr.StandardFeliCa, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}
