// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gecko-audio/geckoctl/state"
)

// Config configures a control-channel Server.
type Config struct {
	// ListenAddress is the TCP address to bind, e.g. "[::]:9000".
	ListenAddress string

	// ReadIdleTimeout tears down a connection that sends nothing for
	// this long. Zero disables the check, matching the reference
	// behavior of holding reader tasks for silent peers forever.
	ReadIdleTimeout time.Duration

	// WriteTimeout bounds each outbound message write. Zero disables.
	WriteTimeout time.Duration
}

// Server owns the TCP control channel: it accepts connections, runs
// one reader loop per connection translating inbound messages into
// registry mutations, and runs the broadcaster that translates
// registry change events back into outbound messages.
type Server struct {
	config   Config
	registry *state.Registry
	logger   *slog.Logger

	listener net.Listener
	streams  *streamDirectory

	// activeConnections tracks reader goroutines so Serve can drain
	// them on shutdown.
	activeConnections sync.WaitGroup
}

// NewServer creates a Server. Call Listen before Serve.
func NewServer(config Config, registry *state.Registry, logger *slog.Logger) *Server {
	return &Server{
		config:   config,
		registry: registry,
		logger:   logger,
		streams:  newStreamDirectory(),
	}
}

// Listen binds the configured TCP address. Binding failure is the only
// fatal startup condition in the whole server, so it is split from
// Serve to surface before any goroutines exist.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("binding control channel %s: %w", s.config.ListenAddress, err)
	}
	s.listener = listener
	return nil
}

// Address returns the bound address, e.g. for announcing via DNS-SD.
// Valid only after Listen.
func (s *Server) Address() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections and blocks until ctx is cancelled, then
// stops accepting, closes every live connection, and waits for the
// per-connection readers to drain. The outbound broadcaster runs for
// the duration of Serve on its own registry subscription.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("control: Serve called before Listen")
	}

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	subscription := s.registry.Subscribe()
	defer subscription.Close()
	go s.broadcast(ctx, subscription)

	s.logger.Info("control channel listening", "address", s.listener.Addr().String())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection runs one session's reader loop from accept to
// teardown. Whatever ends the loop (clean EOF, malformed JSON, an I/O
// error, or a mutation racing a concurrent removal), teardown is the
// same: drop the outbound stream, deregister the session exactly once,
// close the socket.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	id := state.SessionID(conn.RemoteAddr().String())
	logger := s.logger.With("session", string(id))

	// Close the socket on shutdown so the decoder unblocks even with no
	// read deadline configured. The reader owns the connection; this
	// watcher only ever closes it, and exits with the reader otherwise.
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readerDone:
		}
	}()

	s.streams.register(id, conn, s.config.WriteTimeout)
	s.registry.Connect(id)
	logger.Info("client connected")

	defer func() {
		s.streams.remove(id)
		s.registry.Disconnect(id)
		conn.Close()
		logger.Info("client disconnected")
	}()

	decoder := json.NewDecoder(conn)
	for {
		if s.config.ReadIdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadIdleTimeout)); err != nil {
				logger.Warn("setting read deadline", "error", err)
				return
			}
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			// EOF is the clean path; anything else (malformed JSON,
			// idle timeout, socket error) is connection-fatal all the
			// same.
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("inbound stream ended", "error", err)
			}
			return
		}

		message, err := DecodeInbound(raw)
		if err != nil {
			logger.Warn("malformed inbound message", "error", err)
			return
		}

		if err := s.applyInbound(id, logger, message); err != nil {
			logger.Warn("applying inbound message", "error", err)
			return
		}
	}
}

// applyInbound translates one decoded message into its ordered
// registry mutations. A SessionNotFound from any mutation (the session
// was concurrently removed) aborts the rest of the message and tears
// the connection down via the caller.
func (s *Server) applyInbound(id state.SessionID, logger *slog.Logger, message InboundMessage) error {
	set := func(field state.Field, value any) error {
		return s.registry.SetField(id, field, value)
	}

	switch m := message.(type) {
	case Hello:
		return set(state.FieldClientName, m.ClientName)
	case Ping:
		logger.Debug("ping")
		return nil
	case BatteryLevel:
		if err := set(state.FieldBatteryLevel, m.Level); err != nil {
			return err
		}
		return set(state.FieldIsCharging, m.IsCharging)
	case LogMsg:
		logger.Info("client log", "message", m.Message)
		return nil
	case DisplayName:
		return set(state.FieldDisplayName, m.DisplayName)
	case AudioStream:
		if err := set(state.FieldRecvAudioPort, m.RecvAudioPort); err != nil {
			return err
		}
		if err := set(state.FieldRecvRepairPort, m.RecvRepairPort); err != nil {
			return err
		}
		if err := set(state.FieldSendAudioPort, m.SendAudioPort); err != nil {
			return err
		}
		return set(state.FieldSendRepairPort, m.SendRepairPort)
	case MuteAudio:
		if err := set(state.FieldSendMute, m.SendMute); err != nil {
			return err
		}
		return set(state.FieldRecvMute, m.RecvMute)
	case TransmitAudio:
		if err := set(state.FieldSendAudio, m.SendAudio); err != nil {
			return err
		}
		return set(state.FieldRecvAudio, m.RecvAudio)
	default:
		return fmt.Errorf("unhandled inbound message %T", message)
	}
}
