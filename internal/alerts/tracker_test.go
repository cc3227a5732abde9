package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walidbr/stockdeck/internal/api"
	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/logger"
)

type fakeAlertClient struct {
	mu        sync.Mutex
	lists     [][]api.Alert
	listErr   error
	listCalls int
	onList    func(call int)

	seenErr   map[string]error
	seenCalls []string
}

func (f *fakeAlertClient) ListAlerts(ctx context.Context) ([]api.Alert, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	hook := f.onList
	err := f.listErr
	var list []api.Alert
	if len(f.lists) > 0 {
		idx := call - 1
		if idx >= len(f.lists) {
			idx = len(f.lists) - 1
		}
		list = f.lists[idx]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeAlertClient) MarkAlertSeen(ctx context.Context, alertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seenCalls = append(f.seenCalls, alertID)
	if err, ok := f.seenErr[alertID]; ok {
		return err
	}
	return nil
}

func (f *fakeAlertClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func testAlert(id string, seen bool) api.Alert {
	return api.Alert{
		ID:          id,
		ProductName: "Arabica Beans",
		Message:     fmt.Sprintf("stock low for %s", id),
		Seen:        seen,
	}
}

func newTestTracker(t *testing.T, client Client, opts ...func(*TrackerParams)) *Tracker {
	t.Helper()
	params := TrackerParams{
		Client: client,
		Logger: logger.New(logger.Options{ServiceName: "alerts-test"}),
		Dwell:  time.Hour,
	}
	for _, opt := range opts {
		opt(&params)
	}
	tracker, err := NewTracker(params)
	require.NoError(t, err)
	return tracker
}

func TestNewTrackerRequiresClient(t *testing.T) {
	_, err := NewTracker(TrackerParams{Logger: logger.New(logger.Options{})})
	assert.Error(t, err)
}

func TestFetchComputesUnseenAndTransient(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{
		testAlert("a1", false),
		testAlert("a2", true),
		testAlert("a3", false),
		testAlert("a4", false),
		testAlert("a5", false),
	}}}
	tracker := newTestTracker(t, client)

	require.NoError(t, tracker.Fetch(context.Background()))

	assert.Equal(t, 4, tracker.UnseenCount())
	assert.Len(t, tracker.Alerts(), 5)

	transient := tracker.Transient()
	require.Len(t, transient, 3)
	assert.Equal(t, "a1", transient[0].ID)
	assert.Equal(t, "a3", transient[1].ID)
	assert.Equal(t, "a4", transient[2].ID)
}

func TestFetchFailureKeepsPriorState(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{testAlert("a1", false)}}}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	client.mu.Lock()
	client.listErr = errors.New("connection refused")
	client.mu.Unlock()

	err := tracker.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.Equal(t, 1, tracker.UnseenCount())
	assert.Len(t, tracker.Alerts(), 1)
}

func TestStalePollResponseDiscarded(t *testing.T) {
	first := []api.Alert{testAlert("old", false), testAlert("old2", false)}
	second := []api.Alert{testAlert("new", false)}

	release := make(chan struct{})
	secondDone := make(chan struct{})
	client := &fakeAlertClient{lists: [][]api.Alert{first, second}}
	client.onList = func(call int) {
		if call == 1 {
			<-release
		}
	}
	tracker := newTestTracker(t, client)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- tracker.Fetch(context.Background())
	}()

	// Wait for the slow first request to be in flight, then let a second
	// fetch land ahead of it.
	require.Eventually(t, func() bool { return client.calls() == 1 }, time.Second, time.Millisecond)
	go func() {
		defer close(secondDone)
		_ = tracker.Fetch(context.Background())
	}()
	<-secondDone

	close(release)
	require.NoError(t, <-firstDone)

	alerts := tracker.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "new", alerts[0].ID)
	assert.Equal(t, 1, tracker.UnseenCount())
}

func TestTransientClearsAfterDwell(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{testAlert("a1", false)}}}
	tracker := newTestTracker(t, client, func(p *TrackerParams) {
		p.Dwell = 40 * time.Millisecond
	})

	require.NoError(t, tracker.Fetch(context.Background()))
	require.Len(t, tracker.Transient(), 1)

	assert.Eventually(t, func() bool {
		return len(tracker.Transient()) == 0
	}, time.Second, 5*time.Millisecond)
	// The unseen badge outlives the popup.
	assert.Equal(t, 1, tracker.UnseenCount())
}

func TestFreshFetchRearmsDwellTimer(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{testAlert("a1", false)}}}
	tracker := newTestTracker(t, client, func(p *TrackerParams) {
		p.Dwell = 120 * time.Millisecond
	})

	require.NoError(t, tracker.Fetch(context.Background()))
	time.Sleep(70 * time.Millisecond)
	require.NoError(t, tracker.Fetch(context.Background()))

	// The first timer's deadline has passed but the re-arm replaced it.
	time.Sleep(70 * time.Millisecond)
	assert.Len(t, tracker.Transient(), 1)

	assert.Eventually(t, func() bool {
		return len(tracker.Transient()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMarkSeenAppliesLocally(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{
		testAlert("a1", false),
		testAlert("a2", false),
	}}}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	require.NoError(t, tracker.MarkSeen(context.Background(), "a1"))

	assert.Equal(t, 1, tracker.UnseenCount())
	alerts := tracker.Alerts()
	assert.True(t, alerts[0].Seen)
	assert.False(t, alerts[1].Seen)

	// Repeating is harmless: the alert stays seen, the count stays put.
	require.NoError(t, tracker.MarkSeen(context.Background(), "a1"))
	assert.Equal(t, 1, tracker.UnseenCount())
}

func TestMarkSeenFailureLeavesStateUntouched(t *testing.T) {
	client := &fakeAlertClient{
		lists:   [][]api.Alert{{testAlert("a1", false)}},
		seenErr: map[string]error{"a1": errors.New("boom")},
	}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	require.Error(t, tracker.MarkSeen(context.Background(), "a1"))
	assert.Equal(t, 1, tracker.UnseenCount())
	assert.False(t, tracker.Alerts()[0].Seen)
}

func TestMarkSeenRequiresID(t *testing.T) {
	tracker := newTestTracker(t, &fakeAlertClient{})
	err := tracker.MarkSeen(context.Background(), "")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestMarkAllSeenFlipsEverything(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{
		testAlert("a1", false),
		testAlert("a2", true),
		testAlert("a3", false),
	}}}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	require.NoError(t, tracker.MarkAllSeen(context.Background()))

	assert.Equal(t, 0, tracker.UnseenCount())
	for _, alert := range tracker.Alerts() {
		assert.True(t, alert.Seen)
	}
	// Only the unseen pair went over the wire.
	assert.ElementsMatch(t, []string{"a1", "a3"}, client.seenCalls)
}

func TestMarkAllSeenIsAllOrNothing(t *testing.T) {
	client := &fakeAlertClient{
		lists: [][]api.Alert{{
			testAlert("a1", false),
			testAlert("a2", false),
			testAlert("a3", false),
		}},
		seenErr: map[string]error{"a2": errors.New("boom")},
	}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	err := tracker.MarkAllSeen(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "a2")

	// Every mutation still ran, but no local flip happened.
	assert.Len(t, client.seenCalls, 3)
	assert.Equal(t, 3, tracker.UnseenCount())
	for _, alert := range tracker.Alerts() {
		assert.False(t, alert.Seen)
	}
}

func TestMarkAllSeenWithNothingUnseen(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{testAlert("a1", true)}}}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))

	err := tracker.MarkAllSeen(context.Background())
	assert.ErrorIs(t, err, ErrNothingUnseen)
	assert.Empty(t, client.seenCalls)
}

func TestDismissIsPresentationOnly(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{
		testAlert("a1", false),
		testAlert("a2", false),
	}}}
	tracker := newTestTracker(t, client)
	require.NoError(t, tracker.Fetch(context.Background()))
	require.Equal(t, 2, tracker.UnseenCount())

	tracker.Dismiss()
	assert.Equal(t, 0, tracker.UnseenCount())
	assert.Empty(t, client.seenCalls)

	// Server truth still says unseen, so the next poll restores the badge.
	require.NoError(t, tracker.Fetch(context.Background()))
	assert.Equal(t, 2, tracker.UnseenCount())
}

func TestRunPollsImmediatelyAndOnTicks(t *testing.T) {
	client := &fakeAlertClient{lists: [][]api.Alert{{testAlert("a1", false)}}}
	tracker := newTestTracker(t, client, func(p *TrackerParams) {
		p.Interval = 15 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	require.Eventually(t, func() bool { return client.calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after cancel")
	}
	assert.Equal(t, 1, tracker.UnseenCount())
}

func TestRunSurvivesPollFailures(t *testing.T) {
	client := &fakeAlertClient{listErr: errors.New("unreachable")}
	tracker := newTestTracker(t, client, func(p *TrackerParams) {
		p.Interval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	require.Eventually(t, func() bool { return client.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, tracker.UnseenCount())
	assert.Empty(t, tracker.Alerts())
}
