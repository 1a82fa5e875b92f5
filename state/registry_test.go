// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gecko-audio/geckoctl/lib/testutil"
)

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.DiscardHandler))
}

func ptr[T any](v T) *T { return &v }

func TestConnectCreatesEmptyState(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")

	snapshot, err := registry.State("10.0.0.1:5000")
	if err != nil {
		t.Fatalf("State after Connect: %v", err)
	}
	if snapshot != (ClientState{}) {
		t.Errorf("state after Connect = %+v, want all fields unset", snapshot)
	}
}

func TestDisconnectRemovesState(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	registry.Disconnect("10.0.0.1:5000")

	if _, err := registry.State("10.0.0.1:5000"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("State after Disconnect: err = %v, want ErrSessionNotFound", err)
	}
	if got := registry.SessionCount(); got != 0 {
		t.Errorf("SessionCount = %d, want 0", got)
	}
}

func TestDisconnectUnknownSessionIsNoop(t *testing.T) {
	registry := testRegistry()
	sub := registry.Subscribe()
	defer sub.Close()

	registry.Disconnect("10.0.0.1:5000")
	testutil.RequireNoReceive(t, sub.Events(), 100*time.Millisecond,
		"no event expected for disconnecting an unknown session")
}

func TestSetFieldUnknownSession(t *testing.T) {
	registry := testRegistry()
	err := registry.SetField("10.0.0.1:5000", FieldDisplayName, "Kitchen")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SetField on unknown session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestSetFieldRejectsWrongType(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")

	err := registry.SetField("10.0.0.1:5000", FieldBatteryLevel, "nearly full")
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetField with wrong type: err = %v, want ErrInvalidValue", err)
	}
	err = registry.SetField("10.0.0.1:5000", Field("added"), true)
	if !errors.Is(err, ErrUnsupportedChange) {
		t.Errorf("SetField with lifecycle pseudo-field: err = %v, want ErrUnsupportedChange", err)
	}
	err = registry.SetField("10.0.0.1:5000", Field("volume"), 0.5)
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetField with unknown field: err = %v, want ErrInvalidValue", err)
	}
}

// TestSetFieldEventPolarity pins the long-standing (and inverted)
// SetField behavior: writing a NEW value is silent, re-reporting the
// SAME value publishes an event. Deployed clients observe this
// behavior today; changing it is a fleet migration, not a bug fix.
func TestSetFieldEventPolarity(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	sub := registry.Subscribe()
	defer sub.Close()

	if err := registry.SetField("10.0.0.1:5000", FieldDisplayName, "Kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	testutil.RequireNoReceive(t, sub.Events(), 100*time.Millisecond,
		"first write of a new value must not publish")

	if err := registry.SetField("10.0.0.1:5000", FieldDisplayName, "Kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "re-reported value must publish")
	if change.Kind != KindFieldChanged || change.Field != FieldDisplayName {
		t.Errorf("change = %+v, want field-changed on display_name", change)
	}

	// The value itself was stored on the first, silent write.
	snapshot, err := registry.State("10.0.0.1:5000")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snapshot.DisplayName == nil || *snapshot.DisplayName != "Kitchen" {
		t.Errorf("DisplayName = %v, want Kitchen", snapshot.DisplayName)
	}
}

// The client name is the one field whose first write must be visible
// to subscribers (provisioning runs off it), so it publishes a
// dedicated identification event on actual change while keeping the
// FieldChanged polarity above.
func TestClientNameWritePublishesIdentified(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	sub := registry.Subscribe()
	defer sub.Close()

	if err := registry.SetField("10.0.0.1:5000", FieldClientName, "kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "first name write must identify")
	if change.Kind != KindIdentified || change.Field != FieldClientName {
		t.Errorf("change = %+v, want identified on client_name", change)
	}

	// Renaming identifies again.
	if err := registry.SetField("10.0.0.1:5000", FieldClientName, "hallway"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	change = testutil.RequireReceive(t, sub.Events(), 5*time.Second, "rename must identify")
	if change.Kind != KindIdentified {
		t.Errorf("change.Kind = %v, want identified", change.Kind)
	}

	// Re-reporting the same name is the FieldChanged case, not a new
	// identification.
	if err := registry.SetField("10.0.0.1:5000", FieldClientName, "hallway"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	change = testutil.RequireReceive(t, sub.Events(), 5*time.Second, "re-reported name must publish")
	if change.Kind != KindFieldChanged {
		t.Errorf("change.Kind = %v, want field-changed", change.Kind)
	}
}

func TestMergeEmitsOnlyForDifferingFields(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	if err := registry.SetField("10.0.0.1:5000", FieldSendMute, true); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	sub := registry.Subscribe()
	defer sub.Close()

	partial := ClientState{
		SendMute:    ptr(true),      // equal: no event
		RecvMute:    ptr(false),     // new: event
		DisplayName: ptr("Kitchen"), // new: event
	}
	if err := registry.Merge("10.0.0.1:5000", partial); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got := map[Field]bool{}
	for i := 0; i < 2; i++ {
		change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "merge event %d", i)
		got[change.Field] = true
	}
	if !got[FieldRecvMute] || !got[FieldDisplayName] {
		t.Errorf("merge events = %v, want recv_mute and display_name", got)
	}
	testutil.RequireNoReceive(t, sub.Events(), 100*time.Millisecond,
		"no event expected for the equal send_mute field")
}

func TestMergeIdempotent(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	sub := registry.Subscribe()
	defer sub.Close()

	partial := ClientState{
		ClientName:   ptr("kitchen"),
		BatteryLevel: ptr(0.5),
	}
	if err := registry.Merge("10.0.0.1:5000", partial); err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	for i := 0; i < 2; i++ {
		testutil.RequireReceive(t, sub.Events(), 5*time.Second, "event %d from first merge", i)
	}

	if err := registry.Merge("10.0.0.1:5000", partial); err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	testutil.RequireNoReceive(t, sub.Events(), 100*time.Millisecond,
		"second identical merge must be silent")
}

func TestMergeAbsentIntervalClearsStoredInterval(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	if err := registry.SetField("10.0.0.1:5000", FieldBatteryLogIntervalSecs, uint32(60)); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	sub := registry.Subscribe()
	defer sub.Close()

	// A full-snapshot document without the interval clears it.
	if err := registry.Merge("10.0.0.1:5000", ClientState{DisplayName: ptr("Kitchen")}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	fields := map[Field]bool{}
	for i := 0; i < 2; i++ {
		change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "merge event %d", i)
		fields[change.Field] = true
	}
	if !fields[FieldBatteryLogIntervalSecs] {
		t.Errorf("merge events = %v, want battery_log_interval_secs clearing event", fields)
	}

	snapshot, _ := registry.State("10.0.0.1:5000")
	if snapshot.BatteryLogIntervalSecs != nil {
		t.Errorf("BatteryLogIntervalSecs = %v, want cleared", *snapshot.BatteryLogIntervalSecs)
	}
}

func TestMergeUnknownSession(t *testing.T) {
	registry := testRegistry()
	err := registry.Merge("10.0.0.1:5000", ClientState{DisplayName: ptr("Kitchen")})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Merge on unknown session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestRemovedCarriesFinalSnapshot(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	if err := registry.SetField("10.0.0.1:5000", FieldClientName, "kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	sub := registry.Subscribe()
	defer sub.Close()
	registry.Disconnect("10.0.0.1:5000")

	change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "removed event")
	if change.Kind != KindRemoved {
		t.Fatalf("change.Kind = %v, want removed", change.Kind)
	}
	if change.Final.ClientName == nil || *change.Final.ClientName != "kitchen" {
		t.Errorf("Final.ClientName = %v, want kitchen", change.Final.ClientName)
	}
}

func TestSessionByName(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	registry.Connect("10.0.0.2:5000")
	if err := registry.SetField("10.0.0.2:5000", FieldClientName, "kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	id, ok := registry.SessionByName("kitchen")
	if !ok || id != "10.0.0.2:5000" {
		t.Errorf("SessionByName(kitchen) = %q, %v; want 10.0.0.2:5000, true", id, ok)
	}
	if _, ok := registry.SessionByName("garage"); ok {
		t.Error("SessionByName(garage) found a session, want none")
	}
}

func TestAllStatesSnapshotIsolation(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	if err := registry.SetField("10.0.0.1:5000", FieldClientName, "kitchen"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	snapshots := registry.AllStates()
	if len(snapshots) != 1 {
		t.Fatalf("AllStates len = %d, want 1", len(snapshots))
	}
	*snapshots[0].ClientName = "tampered"

	current, _ := registry.State("10.0.0.1:5000")
	if *current.ClientName != "kitchen" {
		t.Error("mutating an AllStates snapshot leaked into the registry")
	}
}

func TestFanOutDeliversEveryEventToEverySubscriber(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")

	first := registry.Subscribe()
	defer first.Close()
	second := registry.Subscribe()
	defer second.Close()

	// Merge publishes one event per differing field; ten differing
	// display names produce ten events on EVERY subscription, not ten
	// split between them.
	const writes = 10
	for i := 0; i < writes; i++ {
		err := registry.Merge("10.0.0.1:5000", ClientState{DisplayName: ptr(fmt.Sprintf("name-%d", i))})
		if err != nil {
			t.Fatalf("Merge %d: %v", i, err)
		}
	}

	for name, sub := range map[string]*Subscription{"first": first, "second": second} {
		for i := 0; i < writes; i++ {
			change := testutil.RequireReceive(t, sub.Events(), 5*time.Second,
				"%s subscriber event %d", name, i)
			if change.Field != FieldDisplayName {
				t.Errorf("%s subscriber event %d field = %s, want display_name", name, i, change.Field)
			}
		}
	}
}

func TestSubscriberObservesEventsInPublishOrder(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")
	sub := registry.Subscribe()
	defer sub.Close()

	fields := []Field{FieldRecvAudioPort, FieldRecvRepairPort, FieldSendAudioPort, FieldSendRepairPort}
	partial := ClientState{
		RecvAudioPort:  ptr(uint16(5000)),
		RecvRepairPort: ptr(uint16(5001)),
		SendAudioPort:  ptr(uint16(6000)),
		SendRepairPort: ptr(uint16(6001)),
	}
	if err := registry.Merge("10.0.0.1:5000", partial); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	for i, want := range fields {
		change := testutil.RequireReceive(t, sub.Events(), 5*time.Second, "ordered event %d", i)
		if change.Field != want {
			t.Errorf("event %d field = %s, want %s", i, change.Field, want)
		}
	}
}

func TestClosedSubscriptionStopsDelivery(t *testing.T) {
	registry := testRegistry()
	registry.Connect("10.0.0.1:5000")

	sub := registry.Subscribe()
	sub.Close()
	sub.Close() // double Close is safe

	registry.Disconnect("10.0.0.1:5000")

	// The events channel closes once the pump exits; no event arrives.
	select {
	case change, ok := <-sub.Events():
		if ok {
			t.Fatalf("received %+v on a closed subscription", change)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
}

func TestConcurrentMutationsOnDistinctSessions(t *testing.T) {
	registry := testRegistry()
	const sessions = 8
	const writesPerSession = 50

	ids := make([]SessionID, sessions)
	for i := range ids {
		ids[i] = SessionID(fmt.Sprintf("10.0.0.%d:5000", i+1))
		registry.Connect(ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id SessionID) {
			defer wg.Done()
			for i := 0; i < writesPerSession; i++ {
				if err := registry.SetField(id, FieldBatteryLevel, float64(i)/writesPerSession); err != nil {
					t.Errorf("SetField(%s): %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		snapshot, err := registry.State(id)
		if err != nil {
			t.Fatalf("State(%s): %v", id, err)
		}
		want := float64(writesPerSession-1) / writesPerSession
		if snapshot.BatteryLevel == nil || *snapshot.BatteryLevel != want {
			t.Errorf("BatteryLevel(%s) = %v, want %v", id, snapshot.BatteryLevel, want)
		}
	}
}
