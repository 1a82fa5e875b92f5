// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"encoding/json"
	"fmt"
)

// The control channel carries concatenated JSON documents with no
// framing beyond the JSON grammar itself. Every document carries a
// "type" discriminator selecting the message shape; the remaining
// fields sit flat alongside it:
//
//	{"type":"Hello","client_name":"kitchen"}
//	{"type":"AudioStream","recv_audio_port":5000,...}
//
// Inbound (client to server) and outbound (server to client) form two
// disjoint sets with DisplayName, AudioStream, MuteAudio, and
// TransmitAudio legal in both directions. Outbound documents are
// additionally terminated by a newline when written; inbound documents
// are not.

// InboundMessage is a decoded client-to-server message.
type InboundMessage interface{ inbound() }

// OutboundMessage is a server-to-client message awaiting encoding.
type OutboundMessage interface{ outbound() }

// Hello announces the client's identity name. First message on a
// well-behaved connection.
type Hello struct {
	ClientName string `json:"client_name"`
}

// Ping is a keepalive. Diagnostic only; mutates nothing.
type Ping struct{}

// BatteryLevel reports the client's battery state.
type BatteryLevel struct {
	Level      float64 `json:"level"`
	IsCharging bool    `json:"is_charging"`
}

// LogMsg forwards a client-side log line. Diagnostic only.
type LogMsg struct {
	Message string `json:"message"`
}

// DisplayName carries the human-readable name, in either direction.
type DisplayName struct {
	DisplayName string `json:"display_name"`
}

// AudioStream negotiates the four UDP port numbers, in either
// direction. Only port numbers travel here; the audio transport
// itself is out of band.
type AudioStream struct {
	RecvAudioPort  uint16 `json:"recv_audio_port"`
	RecvRepairPort uint16 `json:"recv_repair_port"`
	SendAudioPort  uint16 `json:"send_audio_port"`
	SendRepairPort uint16 `json:"send_repair_port"`
}

// MuteAudio carries both mute flags, in either direction.
type MuteAudio struct {
	SendMute bool `json:"send_mute"`
	RecvMute bool `json:"recv_mute"`
}

// TransmitAudio carries both transmit-enable flags, in either
// direction.
type TransmitAudio struct {
	SendAudio bool `json:"send_audio"`
	RecvAudio bool `json:"recv_audio"`
}

// BatLogInterval pushes the battery-report interval to a client. A
// null interval is legal and means "no interval configured".
type BatLogInterval struct {
	BatteryLogIntervalSecs *uint32 `json:"battery_log_interval_secs"`
}

func (Hello) inbound()         {}
func (Ping) inbound()          {}
func (BatteryLevel) inbound()  {}
func (LogMsg) inbound()        {}
func (DisplayName) inbound()   {}
func (AudioStream) inbound()   {}
func (MuteAudio) inbound()     {}
func (TransmitAudio) inbound() {}

func (DisplayName) outbound()    {}
func (AudioStream) outbound()    {}
func (MuteAudio) outbound()      {}
func (TransmitAudio) outbound()  {}
func (BatLogInterval) outbound() {}

// envelope extracts the discriminator before the full decode.
type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound decodes one client-to-server document. This is the
// single decode entry point for the inbound direction; the reader loop
// feeds it raw documents straight off the json.Decoder.
func DecodeInbound(raw json.RawMessage) (InboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding message envelope: %w", err)
	}

	switch env.Type {
	case "Hello":
		return decodeBody[Hello](raw)
	case "Ping":
		return Ping{}, nil
	case "BatteryLevel":
		return decodeBody[BatteryLevel](raw)
	case "LogMsg":
		return decodeBody[LogMsg](raw)
	case "DisplayName":
		return decodeBody[DisplayName](raw)
	case "AudioStream":
		return decodeBody[AudioStream](raw)
	case "MuteAudio":
		return decodeBody[MuteAudio](raw)
	case "TransmitAudio":
		return decodeBody[TransmitAudio](raw)
	default:
		return nil, fmt.Errorf("unknown inbound message type %q", env.Type)
	}
}

// EncodeOutbound encodes one server-to-client message with its
// discriminator. The trailing newline is added at write time, not
// here.
func EncodeOutbound(message OutboundMessage) ([]byte, error) {
	switch m := message.(type) {
	case DisplayName:
		return tag("DisplayName", m)
	case AudioStream:
		return tag("AudioStream", m)
	case MuteAudio:
		return tag("MuteAudio", m)
	case TransmitAudio:
		return tag("TransmitAudio", m)
	case BatLogInterval:
		return tag("BatLogInterval", m)
	default:
		return nil, fmt.Errorf("unknown outbound message type %T", message)
	}
}

// EncodeInbound encodes one client-to-server message. Used by the mock
// client and by tests; the server itself never sends these.
func EncodeInbound(message InboundMessage) ([]byte, error) {
	switch m := message.(type) {
	case Hello:
		return tag("Hello", m)
	case Ping:
		return tag("Ping", m)
	case BatteryLevel:
		return tag("BatteryLevel", m)
	case LogMsg:
		return tag("LogMsg", m)
	case DisplayName:
		return tag("DisplayName", m)
	case AudioStream:
		return tag("AudioStream", m)
	case MuteAudio:
		return tag("MuteAudio", m)
	case TransmitAudio:
		return tag("TransmitAudio", m)
	default:
		return nil, fmt.Errorf("unknown inbound message type %T", message)
	}
}

// DecodeOutbound decodes one server-to-client document. Used by the
// mock client and by tests.
func DecodeOutbound(raw json.RawMessage) (OutboundMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding message envelope: %w", err)
	}

	switch env.Type {
	case "DisplayName":
		return decodeBody[DisplayName](raw)
	case "AudioStream":
		return decodeBody[AudioStream](raw)
	case "MuteAudio":
		return decodeBody[MuteAudio](raw)
	case "TransmitAudio":
		return decodeBody[TransmitAudio](raw)
	case "BatLogInterval":
		return decodeBody[BatLogInterval](raw)
	default:
		return nil, fmt.Errorf("unknown outbound message type %q", env.Type)
	}
}

func decodeBody[T any](raw json.RawMessage) (T, error) {
	var body T
	if err := json.Unmarshal(raw, &body); err != nil {
		return body, fmt.Errorf("decoding %T: %w", body, err)
	}
	return body, nil
}

// tag marshals the message body with the discriminator spliced in as
// the leading field.
func tag[T any](name string, body T) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", body, err)
	}
	prefix := []byte(`{"type":"` + name + `"`)
	if len(data) == 2 { // empty object
		return append(prefix, '}'), nil
	}
	out := make([]byte, 0, len(prefix)+1+len(data)-1)
	out = append(out, prefix...)
	out = append(out, ',')
	out = append(out, data[1:]...)
	return out, nil
}
