// Command assistantd bridges a broadcast-assistant host to the engine over a
// COBS-framed serial or stdio link.
package main

import (
	"encoding/hex"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	assistant "github.com/AstraeusLabs/web-broadcast-assistant"
	"github.com/AstraeusLabs/web-broadcast-assistant/device"
	"github.com/AstraeusLabs/web-broadcast-assistant/message"
	"github.com/AstraeusLabs/web-broadcast-assistant/store"
	"github.com/AstraeusLabs/web-broadcast-assistant/transport"
)

const cmdQueueSize = 16

func main() {
	app := cli.NewApp()
	app.Name = "assistantd"
	app.Usage = "broadcast assistant daemon"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "device, d",
			Usage: "serial device connected to the host",
			Value: "/dev/ttyACM0",
		},
		cli.UintFlag{
			Name:  "baud, b",
			Usage: "serial baud rate",
			Value: 115200,
		},
		cli.BoolFlag{
			Name:  "stdio",
			Usage: "talk to the host over stdin/stdout instead of a serial device",
		},
		cli.StringFlag{
			Name:  "store",
			Usage: "file for discovered-source persistence",
			Value: "sources.json",
		},
		cli.StringFlag{
			Name:  "sirk",
			Usage: "32 hex chars, key for decrypting coordinated-set SIRKs",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "maximum log verbosity",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		assistant.GetLogger().Errorf("%v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := assistant.GetLogger()
	if c.Bool("debug") {
		assistant.SetLogLevelMax()
	}

	stream, err := openStream(c)
	if err != nil {
		return err
	}

	opts := []device.Option{device.WithLogger(log)}

	if s := c.String("sirk"); s != "" {
		key, err := parseSIRK(s)
		if err != nil {
			return err
		}
		opts = append(opts, device.WithSIRKKey(key))
	}

	if path := c.String("store"); path != "" {
		opts = append(opts, device.WithSourceObserver(sourceObserver(store.New(path), log)))
	}

	// The engine and the pump reference each other; the closure resolves
	// the cycle once both exist.
	var pump *transport.Pump
	send := func(f message.Frame) {
		if pump != nil {
			pump.Send(f)
		}
	}

	eng := device.New(newNullLink(log), send, opts...)

	// Commands run on their own worker so a slow procedure never stalls
	// the receive loop.
	cmds := make(chan message.Frame, cmdQueueSize)
	go func() {
		for f := range cmds {
			eng.HandleMessage(f)
		}
	}()

	pump = transport.New(stream, func(f message.Frame) {
		select {
		case cmds <- f:
		default:
			log.Warnf("command queue full, dropping %v", f)
		}
	}, transport.WithLogger(log))

	eng.Start()
	pump.Start()
	log.Infof("assistantd up")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Infof("shutting down")
	pump.Close()
	eng.Stop()
	close(cmds)
	return nil
}

func openStream(c *cli.Context) (io.ReadWriteCloser, error) {
	if c.Bool("stdio") {
		return stdioStream{}, nil
	}

	sp, err := serial.Open(serial.OpenOptions{
		PortName:        c.String("device"),
		BaudRate:        c.Uint("baud"),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", c.String("device"))
	}
	return sp, nil
}

func parseSIRK(s string) ([16]byte, error) {
	var key [16]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return key, errors.Wrap(err, "bad sirk")
	}
	if len(b) != len(key) {
		return key, errors.Errorf("bad sirk length %d, want %d", len(b), len(key))
	}

	copy(key[:], b)
	return key, nil
}

func sourceObserver(st store.SourceStore, log assistant.Logger) func(device.SourceInfo) {
	return func(si device.SourceInfo) {
		rec := store.Record{
			Addr:          si.Addr.String(),
			AddrType:      si.Addr.Type,
			SID:           si.SID,
			PAInterval:    si.PAInterval,
			BroadcastID:   si.BroadcastID,
			Name:          si.Name,
			BroadcastName: si.BroadcastName,
			RSSI:          si.RSSI,
			LastSeen:      time.Now().UTC(),
		}
		if err := st.Store(rec, true); err != nil {
			log.Warnf("source store failed: %v", err)
		}
	}
}

type stdioStream struct{}

func (stdioStream) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioStream) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioStream) Close() error                { return os.Stdin.Close() }
