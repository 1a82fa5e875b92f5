// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"errors"

	"github.com/gecko-audio/geckoctl/state"
)

// broadcast consumes the server's registry subscription and pushes the
// resulting wire messages to the affected session. One loop per
// listener; write failures are logged and skipped, never fatal to the
// loop.
func (s *Server) broadcast(ctx context.Context, subscription *state.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-subscription.Events():
			if !ok {
				return
			}
			s.handleChange(change)
		}
	}
}

func (s *Server) handleChange(change state.Change) {
	switch change.Kind {
	case state.KindAdded, state.KindIdentified:
		return
	case state.KindRemoved:
		s.streams.remove(change.Session)
		return
	}

	message, ok := s.renderOutbound(change)
	if !ok {
		return
	}

	stream, ok := s.streams.get(change.Session)
	if !ok {
		// Stream already torn down; the session raced a disconnect.
		return
	}

	data, err := EncodeOutbound(message)
	if err != nil {
		s.logger.Error("encoding outbound message", "session", string(change.Session), "error", err)
		return
	}
	if err := stream.writeDocument(data); err != nil {
		s.logger.Warn("writing outbound message", "session", string(change.Session), "error", err)
	}
}

// renderOutbound maps one field change to its outbound message, or
// reports that nothing should be sent. Composite messages (the four
// ports, the mute pair, the transmit pair) are built from a fresh
// state read and suppressed until every constituent field is known.
// Event payloads could be stale by the time this loop runs; the read
// cannot be.
func (s *Server) renderOutbound(change state.Change) (OutboundMessage, bool) {
	snapshot, err := s.registry.State(change.Session)
	if err != nil {
		if !errors.Is(err, state.ErrSessionNotFound) {
			s.logger.Error("reading state for broadcast", "session", string(change.Session), "error", err)
		}
		// Session gone between the event and now: nothing to send.
		return nil, false
	}

	switch change.Field {
	case state.FieldDisplayName:
		if snapshot.DisplayName == nil {
			return nil, false
		}
		return DisplayName{DisplayName: *snapshot.DisplayName}, true

	case state.FieldRecvAudioPort, state.FieldRecvRepairPort,
		state.FieldSendAudioPort, state.FieldSendRepairPort:
		if !snapshot.AllPortsKnown() {
			return nil, false
		}
		return AudioStream{
			RecvAudioPort:  *snapshot.RecvAudioPort,
			RecvRepairPort: *snapshot.RecvRepairPort,
			SendAudioPort:  *snapshot.SendAudioPort,
			SendRepairPort: *snapshot.SendRepairPort,
		}, true

	case state.FieldSendMute, state.FieldRecvMute:
		if snapshot.SendMute == nil || snapshot.RecvMute == nil {
			return nil, false
		}
		return MuteAudio{SendMute: *snapshot.SendMute, RecvMute: *snapshot.RecvMute}, true

	case state.FieldSendAudio, state.FieldRecvAudio:
		if snapshot.SendAudio == nil || snapshot.RecvAudio == nil {
			return nil, false
		}
		return TransmitAudio{SendAudio: *snapshot.SendAudio, RecvAudio: *snapshot.RecvAudio}, true

	case state.FieldBatteryLogIntervalSecs:
		// Null is a legal payload here: it tells the client no
		// interval is configured.
		return BatLogInterval{BatteryLogIntervalSecs: snapshot.BatteryLogIntervalSecs}, true

	default:
		// ClientName, BatteryLevel, IsCharging: server-internal state,
		// never echoed to the client.
		return nil, false
	}
}
