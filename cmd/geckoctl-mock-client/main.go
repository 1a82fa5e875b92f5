// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// geckoctl-mock-client impersonates an audio endpoint for manual
// end-to-end exercise of the control channel. It dials the server,
// plays a scripted sequence of inbound messages, then stays connected
// printing every server-to-client message as a line until interrupted.
//
// The script is assembled from flags; with none given it sends only
// the hello. Example:
//
//	geckoctl-mock-client --server localhost:9000 --name kitchen \
//	    --battery 0.85 --charging \
//	    --ports 5000,5001,6000,6001 --repeat 2
//
// --repeat replays the scripted state reports; the server publishes a
// value on its confirming re-report, so --repeat 2 is the way to see
// outbound traffic provoked by your own reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gecko-audio/geckoctl/control"
	"github.com/gecko-audio/geckoctl/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var showVersion bool
	var server, name, displayName, ports, logLine string
	var battery float64
	var charging, mute, transmit bool
	var repeat int
	var interval time.Duration

	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&server, "server", "localhost:9000", "control channel address to dial")
	flag.StringVar(&name, "name", "mock", "client name sent in the hello")
	flag.StringVar(&displayName, "display-name", "", "report a display name")
	flag.Float64Var(&battery, "battery", -1, "report a battery level in [0,1]")
	flag.BoolVar(&charging, "charging", false, "report as charging (with --battery)")
	flag.StringVar(&ports, "ports", "", "report stream ports as recv_audio,recv_repair,send_audio,send_repair")
	flag.BoolVar(&mute, "mute", false, "report both mute flags set")
	flag.BoolVar(&transmit, "transmit", false, "report both transmit flags set")
	flag.StringVar(&logLine, "log", "", "forward a log message")
	flag.IntVar(&repeat, "repeat", 1, "times to play the scripted reports")
	flag.DurationVar(&interval, "interval", 100*time.Millisecond, "pause between scripted messages")
	flag.Parse()

	if showVersion {
		version.Print("geckoctl-mock-client")
		return nil
	}

	script, err := buildScript(name, displayName, ports, logLine, battery, charging, mute, transmit)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := net.Dial("tcp", server)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", server, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	fmt.Printf("connected to %s as %q\n", server, name)

	// Print server pushes as they arrive.
	printerDone := make(chan error, 1)
	go func() { printerDone <- printOutbound(conn) }()

	for round := 0; round < repeat; round++ {
		for _, message := range script {
			data, err := control.EncodeInbound(message)
			if err != nil {
				return err
			}
			if _, err := conn.Write(data); err != nil {
				return fmt.Errorf("sending %T: %w", message, err)
			}
			fmt.Printf("sent %s\n", data)
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return nil
			}
		}
	}

	err = <-printerDone
	if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// buildScript assembles the inbound message sequence from the flags.
// The hello always leads; everything else is optional.
func buildScript(name, displayName, ports, logLine string, battery float64, charging, mute, transmit bool) ([]control.InboundMessage, error) {
	script := []control.InboundMessage{control.Hello{ClientName: name}}

	if battery >= 0 {
		script = append(script, control.BatteryLevel{Level: battery, IsCharging: charging})
	}
	if displayName != "" {
		script = append(script, control.DisplayName{DisplayName: displayName})
	}
	if ports != "" {
		parsed, err := parsePorts(ports)
		if err != nil {
			return nil, err
		}
		script = append(script, parsed)
	}
	if mute {
		script = append(script, control.MuteAudio{SendMute: true, RecvMute: true})
	}
	if transmit {
		script = append(script, control.TransmitAudio{SendAudio: true, RecvAudio: true})
	}
	if logLine != "" {
		script = append(script, control.LogMsg{Message: logLine})
	}
	script = append(script, control.Ping{})
	return script, nil
}

func parsePorts(spec string) (control.AudioStream, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return control.AudioStream{}, fmt.Errorf("--ports wants four comma-separated numbers, got %q", spec)
	}
	values := make([]uint16, 4)
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return control.AudioStream{}, fmt.Errorf("parsing port %q: %w", part, err)
		}
		values[i] = uint16(n)
	}
	return control.AudioStream{
		RecvAudioPort:  values[0],
		RecvRepairPort: values[1],
		SendAudioPort:  values[2],
		SendRepairPort: values[3],
	}, nil
}

// printOutbound reads server-to-client documents until the stream
// ends, printing one line per message.
func printOutbound(conn net.Conn) error {
	decoder := json.NewDecoder(conn)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		message, err := control.DecodeOutbound(raw)
		if err != nil {
			fmt.Printf("recv unparseable: %s\n", raw)
			continue
		}
		fmt.Printf("recv %T %s\n", message, raw)
	}
}
