// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry owns the state of every connected session and publishes
// every mutation to every subscriber.
//
// All methods are safe for concurrent use. Mutations on the same
// session are serialized by the registry's write lock, so a session's
// event stream always matches the order its fields were written. No
// ordering holds across different sessions. The critical sections do
// nothing but map and slice work — no I/O ever happens under the lock.
type Registry struct {
	logger *slog.Logger

	mu          sync.RWMutex
	sessions    map[SessionID]*ClientState
	subscribers []*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		sessions: make(map[SessionID]*ClientState),
	}
}

// Connect creates an empty state record for the session and publishes
// KindAdded. A stale record under the same endpoint (which the kernel
// will not normally produce while the old connection is open) is
// discarded: the new connection is an unrelated client.
func (r *Registry) Connect(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = &ClientState{}
	r.publishLocked(Change{Session: id, Kind: KindAdded})
}

// Disconnect removes the session's state and publishes KindRemoved
// carrying the final snapshot. No-op when the session is unknown.
func (r *Registry) Disconnect(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	r.publishLocked(Change{Session: id, Kind: KindRemoved, Final: current.Clone()})
}

// SetField writes one field of a connected session's state.
//
// Note the event polarity: a FieldChanged event is published when the
// newly supplied value EQUALS the value the field held before the
// write. This mirrors the behavior deployed clients have been
// observing since the first firmware release; Merge uses the opposite
// (differs) polarity. Do not "fix" one side without migrating the
// other and the fleet together.
//
// The client name additionally publishes KindIdentified whenever the
// stored name actually changed. Under the inverted polarity a first
// Hello emits no FieldChanged, yet config provisioning must run the
// moment a session gains its name, so identification gets its own
// event kind instead of riding on the defective one.
func (r *Registry) SetField(id SessionID, field Field, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("set %s: %w", field, ErrSessionNotFound)
	}

	equal, err := setField(current, field, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	if field == FieldClientName && !equal {
		r.publishLocked(Change{Session: id, Kind: KindIdentified, Field: field})
	}
	if equal {
		r.publishLocked(Change{Session: id, Kind: KindFieldChanged, Field: field})
	}
	return nil
}

// Merge overwrites every field present in partial onto the session's
// stored state, publishing one KindFieldChanged per field whose value
// actually differed. Merging the same document twice publishes events
// only the first time.
//
// The battery log interval is the one field merged even when absent:
// a document without it clears a stored interval (and that clearing is
// an observable change). Config files are full snapshots, so an absent
// interval genuinely means "no interval configured".
func (r *Registry) Merge(id SessionID, partial ClientState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("merge: %w", ErrSessionNotFound)
	}

	type mergedField struct {
		field   Field
		changed bool
	}
	merged := []mergedField{
		{FieldClientName, assignIfPresent(&current.ClientName, partial.ClientName)},
		{FieldBatteryLevel, assignIfPresent(&current.BatteryLevel, partial.BatteryLevel)},
		{FieldIsCharging, assignIfPresent(&current.IsCharging, partial.IsCharging)},
		{FieldDisplayName, assignIfPresent(&current.DisplayName, partial.DisplayName)},
		{FieldRecvAudioPort, assignIfPresent(&current.RecvAudioPort, partial.RecvAudioPort)},
		{FieldRecvRepairPort, assignIfPresent(&current.RecvRepairPort, partial.RecvRepairPort)},
		{FieldSendAudioPort, assignIfPresent(&current.SendAudioPort, partial.SendAudioPort)},
		{FieldSendRepairPort, assignIfPresent(&current.SendRepairPort, partial.SendRepairPort)},
		{FieldSendMute, assignIfPresent(&current.SendMute, partial.SendMute)},
		{FieldRecvMute, assignIfPresent(&current.RecvMute, partial.RecvMute)},
		{FieldSendAudio, assignIfPresent(&current.SendAudio, partial.SendAudio)},
		{FieldRecvAudio, assignIfPresent(&current.RecvAudio, partial.RecvAudio)},
		{FieldBatteryLogIntervalSecs, assignAlways(&current.BatteryLogIntervalSecs, partial.BatteryLogIntervalSecs)},
	}
	for _, m := range merged {
		if m.changed {
			r.publishLocked(Change{Session: id, Kind: KindFieldChanged, Field: m.field})
		}
	}
	return nil
}

// State returns an isolated snapshot of the session's current state.
func (r *Registry) State(id SessionID) (ClientState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current, ok := r.sessions[id]
	if !ok {
		return ClientState{}, ErrSessionNotFound
	}
	return current.Clone(), nil
}

// SessionByName returns the session whose reported client name matches.
// Client names carry no uniqueness guarantee; with duplicates this
// returns an arbitrary first match (map iteration order).
func (r *Registry) SessionByName(name string) (SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, current := range r.sessions {
		if current.ClientName != nil && *current.ClientName == name {
			return id, true
		}
	}
	return "", false
}

// AllStates returns a point-in-time snapshot of every connected
// session's state, for read-only consumers like the dashboard.
func (r *Registry) AllStates() []ClientState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]ClientState, 0, len(r.sessions))
	for _, current := range r.sessions {
		snapshots = append(snapshots, current.Clone())
	}
	return snapshots
}

// SessionCount returns the number of connected sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// setField writes one typed field, reporting whether the new value
// equals what the field held immediately before the write.
func setField(current *ClientState, field Field, value any) (equal bool, err error) {
	switch field {
	case FieldClientName:
		return setScalar(&current.ClientName, value)
	case FieldBatteryLevel:
		return setScalar(&current.BatteryLevel, value)
	case FieldIsCharging:
		return setScalar(&current.IsCharging, value)
	case FieldDisplayName:
		return setScalar(&current.DisplayName, value)
	case FieldRecvAudioPort:
		return setScalar(&current.RecvAudioPort, value)
	case FieldRecvRepairPort:
		return setScalar(&current.RecvRepairPort, value)
	case FieldSendAudioPort:
		return setScalar(&current.SendAudioPort, value)
	case FieldSendRepairPort:
		return setScalar(&current.SendRepairPort, value)
	case FieldSendMute:
		return setScalar(&current.SendMute, value)
	case FieldRecvMute:
		return setScalar(&current.RecvMute, value)
	case FieldSendAudio:
		return setScalar(&current.SendAudio, value)
	case FieldRecvAudio:
		return setScalar(&current.RecvAudio, value)
	case FieldBatteryLogIntervalSecs:
		// Nullable on the wire: accept a pointer (nil clears) or a
		// bare value.
		switch v := value.(type) {
		case *uint32:
			equal = pointersEqual(current.BatteryLogIntervalSecs, v)
			current.BatteryLogIntervalSecs = clonePointer(v)
			return equal, nil
		case uint32:
			return setScalar(&current.BatteryLogIntervalSecs, value)
		default:
			return false, fmt.Errorf("%w: got %T", ErrInvalidValue, value)
		}
	default:
		if field == "added" || field == "removed" {
			return false, ErrUnsupportedChange
		}
		return false, fmt.Errorf("%w: unknown field %q", ErrInvalidValue, field)
	}
}

// setScalar stores value into the field, reporting whether the field
// already held that exact value.
func setScalar[T comparable](dst **T, value any) (equal bool, err error) {
	v, ok := value.(T)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrInvalidValue, value)
	}
	equal = *dst != nil && **dst == v
	*dst = &v
	return equal, nil
}

// assignIfPresent overwrites dst with src when src is set, reporting
// whether the stored value actually changed.
func assignIfPresent[T comparable](dst **T, src *T) (changed bool) {
	if src == nil {
		return false
	}
	changed = *dst == nil || **dst != *src
	v := *src
	*dst = &v
	return changed
}

// assignAlways overwrites dst with src unconditionally (including
// clearing), reporting whether the stored value changed.
func assignAlways[T comparable](dst **T, src *T) (changed bool) {
	changed = !pointersEqual(*dst, src)
	*dst = clonePointer(src)
	return changed
}
