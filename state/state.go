// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package state

// SessionID identifies one live connection by its remote network
// endpoint ("host:port"). The same endpoint may be reused by a later,
// unrelated connection after a disconnect, so a SessionID never
// denotes the same logical client across reconnects — the client name
// inside ClientState is the only durable identity.
type SessionID string

// ClientState is the sparse record of everything a client has reported
// on its session. Every field starts unset; nil means "not reported
// yet", which is distinct from any reported value. Serialized as the
// per-client JSON config file, so the JSON tags are part of the
// on-disk format.
type ClientState struct {
	ClientName             *string  `json:"client_name,omitempty"`
	BatteryLevel           *float64 `json:"battery_level,omitempty"`
	IsCharging             *bool    `json:"is_charging,omitempty"`
	DisplayName            *string  `json:"display_name,omitempty"`
	RecvAudioPort          *uint16  `json:"recv_audio_port,omitempty"`
	RecvRepairPort         *uint16  `json:"recv_repair_port,omitempty"`
	SendAudioPort          *uint16  `json:"send_audio_port,omitempty"`
	SendRepairPort         *uint16  `json:"send_repair_port,omitempty"`
	SendMute               *bool    `json:"send_mute,omitempty"`
	RecvMute               *bool    `json:"recv_mute,omitempty"`
	SendAudio              *bool    `json:"send_audio,omitempty"`
	RecvAudio              *bool    `json:"recv_audio,omitempty"`
	BatteryLogIntervalSecs *uint32  `json:"battery_log_interval_secs,omitempty"`
}

// Clone returns a deep copy. Snapshots handed out by the registry are
// always clones, so callers can never alias the live map entry.
func (s ClientState) Clone() ClientState {
	return ClientState{
		ClientName:             clonePointer(s.ClientName),
		BatteryLevel:           clonePointer(s.BatteryLevel),
		IsCharging:             clonePointer(s.IsCharging),
		DisplayName:            clonePointer(s.DisplayName),
		RecvAudioPort:          clonePointer(s.RecvAudioPort),
		RecvRepairPort:         clonePointer(s.RecvRepairPort),
		SendAudioPort:          clonePointer(s.SendAudioPort),
		SendRepairPort:         clonePointer(s.SendRepairPort),
		SendMute:               clonePointer(s.SendMute),
		RecvMute:               clonePointer(s.RecvMute),
		SendAudio:              clonePointer(s.SendAudio),
		RecvAudio:              clonePointer(s.RecvAudio),
		BatteryLogIntervalSecs: clonePointer(s.BatteryLogIntervalSecs),
	}
}

// AllPortsKnown reports whether all four audio port fields have been
// reported. The outbound AudioStream message is a composite of all
// four; it must never be emitted from a partial set.
func (s ClientState) AllPortsKnown() bool {
	return s.RecvAudioPort != nil && s.RecvRepairPort != nil &&
		s.SendAudioPort != nil && s.SendRepairPort != nil
}

// Field names one mutable ClientState field. The values double as the
// JSON keys of the wire protocol and the config file format.
type Field string

const (
	FieldClientName             Field = "client_name"
	FieldBatteryLevel           Field = "battery_level"
	FieldIsCharging             Field = "is_charging"
	FieldDisplayName            Field = "display_name"
	FieldRecvAudioPort          Field = "recv_audio_port"
	FieldRecvRepairPort         Field = "recv_repair_port"
	FieldSendAudioPort          Field = "send_audio_port"
	FieldSendRepairPort         Field = "send_repair_port"
	FieldSendMute               Field = "send_mute"
	FieldRecvMute               Field = "recv_mute"
	FieldSendAudio              Field = "send_audio"
	FieldRecvAudio              Field = "recv_audio"
	FieldBatteryLogIntervalSecs Field = "battery_log_interval_secs"
)

// ChangeKind classifies a change event.
type ChangeKind int

const (
	// KindAdded: the session was just created with empty state.
	KindAdded ChangeKind = iota
	// KindRemoved: the session was just destroyed. The Change carries
	// the final state snapshot; the registry retains nothing.
	KindRemoved
	// KindFieldChanged: one field was written. The Change names the
	// field; consumers that need values re-read the registry, so
	// composites are always built from the freshest state.
	KindFieldChanged
	// KindIdentified: a client-name write actually changed the stored
	// name, i.e. the session identified or re-identified itself. This
	// fires on the polarity FieldChanged cannot cover for client_name
	// (see Registry.SetField): without it, a client's first Hello
	// would be invisible to subscribers.
	KindIdentified
)

// String returns the kind name for logging.
func (k ChangeKind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindRemoved:
		return "removed"
	case KindFieldChanged:
		return "field-changed"
	case KindIdentified:
		return "identified"
	default:
		return "unknown"
	}
}

// Change is one state-change event delivered to every subscriber.
type Change struct {
	// Session is the affected session.
	Session SessionID

	// Kind classifies the event.
	Kind ChangeKind

	// Field names the written field. Set for KindFieldChanged and
	// KindIdentified (always FieldClientName for the latter).
	Field Field

	// Final is the last known state snapshot. Set only for
	// KindRemoved, where the registry entry is already gone.
	Final ClientState
}

func clonePointer[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func pointersEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
