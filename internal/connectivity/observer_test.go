package connectivity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/test/testutil"
)

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connectivity transition")
		return false
	}
}

func TestObserverDeliversEdgeTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := testutil.NewFakeMonitor(true)
	observer := connectivity.NewObserver(monitor, testutil.NewTestLogger())

	transitions := observer.Subscribe()
	go observer.Start(ctx)

	// Initial sample: offline -> online edge.
	assert.True(t, receive(t, transitions))
	assert.True(t, observer.LastKnown())

	monitor.SetReachable(false)
	assert.False(t, receive(t, transitions))
	assert.False(t, observer.LastKnown())
}

func TestObserverConflatesRepeatedSamples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := testutil.NewFakeMonitor(true)
	observer := connectivity.NewObserver(monitor, testutil.NewTestLogger())

	transitions := observer.Subscribe()
	go observer.Start(ctx)

	assert.True(t, receive(t, transitions))

	// Same value again produces no edge.
	monitor.SetReachable(true)
	select {
	case v := <-transitions:
		t.Fatalf("unexpected transition %v for a repeated sample", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestObserverTreatsRegistrationFailureAsOffline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := testutil.NewFakeMonitor(true)
	monitor.ObserveErr = errors.New("no connectivity service")
	observer := connectivity.NewObserver(monitor, testutil.NewTestLogger())

	go observer.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, observer.LastKnown())
}

func TestObserverReachableDelegatesToMonitor(t *testing.T) {
	monitor := testutil.NewFakeMonitor(true)
	observer := connectivity.NewObserver(monitor, testutil.NewTestLogger())

	assert.True(t, observer.Reachable(context.Background()))
	monitor.SetReachable(false)
	assert.False(t, observer.Reachable(context.Background()))
}
