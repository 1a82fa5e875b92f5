// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gecko-audio/geckoctl/state"
)

// streamDirectory holds the outbound write side of every connected
// session. Registered at accept time, dropped at disconnect. The
// directory lock covers only map access; writes happen under the
// per-stream mutex so one slow peer delays nobody but itself.
type streamDirectory struct {
	mu      sync.RWMutex
	streams map[state.SessionID]*outboundStream
}

// outboundStream serializes writes to one session. The write deadline
// bounds each message so a peer that stops draining its socket cannot
// wedge the broadcaster (the reference system had no such bound).
type outboundStream struct {
	mu           sync.Mutex
	conn         net.Conn
	writeTimeout time.Duration
}

func newStreamDirectory() *streamDirectory {
	return &streamDirectory{streams: make(map[state.SessionID]*outboundStream)}
}

func (d *streamDirectory) register(id state.SessionID, conn net.Conn, writeTimeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams[id] = &outboundStream{conn: conn, writeTimeout: writeTimeout}
}

// remove drops the session's stream handle. Idempotent; the connection
// itself is closed by the reader that owns it.
func (d *streamDirectory) remove(id state.SessionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.streams, id)
}

func (d *streamDirectory) get(id state.SessionID) (*outboundStream, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stream, ok := d.streams[id]
	return stream, ok
}

// writeDocument writes one encoded JSON document plus the terminating
// newline as a single buffered write.
func (s *outboundStream) writeDocument(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	framed := make([]byte, 0, len(data)+1)
	framed = append(framed, data...)
	framed = append(framed, '\n')
	if _, err := s.conn.Write(framed); err != nil {
		return fmt.Errorf("writing outbound message: %w", err)
	}
	return nil
}
