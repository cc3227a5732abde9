package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/walidbr/stockdeck/internal/api"
	pkgerrors "github.com/walidbr/stockdeck/pkg/errors"
	"github.com/walidbr/stockdeck/pkg/logger"
	"github.com/walidbr/stockdeck/pkg/metrics"
)

const (
	defaultInterval       = 10 * time.Second
	defaultDwell          = 6 * time.Second
	defaultTransientLimit = 3

	fetchOperation = "alerts"
)

// ErrNothingUnseen is the informational outcome of MarkAllSeen when every
// alert is already seen.
var ErrNothingUnseen = errors.New("no unseen alerts")

// Client is the backend surface the tracker polls and mutates.
type Client interface {
	ListAlerts(ctx context.Context) ([]api.Alert, error)
	MarkAlertSeen(ctx context.Context, alertID string) error
}

// TrackerParams configure the alert tracker.
type TrackerParams struct {
	Client         Client
	Logger         *logger.Logger
	Metrics        *metrics.PollerMetrics
	Interval       time.Duration
	Dwell          time.Duration
	TransientLimit int
}

// Tracker keeps near-real-time alert awareness: it polls the backend on a
// fixed cadence, tracks the unseen count, and holds a bounded short-lived
// queue of the freshest unseen alerts for transient display.
type Tracker struct {
	client         Client
	logg           *logger.Logger
	metrics        *metrics.PollerMetrics
	interval       time.Duration
	dwell          time.Duration
	transientLimit int

	mu          sync.Mutex
	alerts      []api.Alert
	unseenCount int
	transient   []api.Alert
	dwellTimer  *time.Timer
	dwellGen    uint64
	issuedSeq   uint64
	appliedSeq  uint64
}

// NewTracker wires tracker dependencies.
func NewTracker(params TrackerParams) (*Tracker, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("alerts client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	dwell := params.Dwell
	if dwell <= 0 {
		dwell = defaultDwell
	}
	limit := params.TransientLimit
	if limit <= 0 {
		limit = defaultTransientLimit
	}
	return &Tracker{
		client:         params.Client,
		logg:           params.Logger,
		metrics:        params.Metrics,
		interval:       interval,
		dwell:          dwell,
		transientLimit: limit,
	}, nil
}

// Run polls immediately and then on every tick until the context is
// canceled. Poll failures are swallowed here: prior state stays, the next
// tick retries.
func (t *Tracker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.Fetch(ctx); err != nil {
		t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "alert poll failed")
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.stopDwellTimer()
			t.logg.Info(ctx, "alert tracker context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := t.Fetch(ctx); err != nil {
				t.logg.Warn(t.logg.WithField(ctx, "error", err.Error()), "alert poll failed")
			}
		}
	}
}

// Fetch pulls the alert list and recomputes the derived state. A stale
// response (one issued before an already-applied fetch) is discarded
// instead of overwriting newer data. On failure nothing changes.
func (t *Tracker) Fetch(ctx context.Context) error {
	t.mu.Lock()
	t.issuedSeq++
	seq := t.issuedSeq
	t.mu.Unlock()

	start := time.Now()
	list, err := t.client.ListAlerts(ctx)
	t.metrics.ObserveDuration(fetchOperation, time.Since(start))
	if err != nil {
		t.metrics.IncFailure(fetchOperation)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch alerts")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if seq <= t.appliedSeq {
		t.logg.Debug(ctx, "discarding stale poll response")
		return nil
	}
	t.appliedSeq = seq

	t.alerts = list
	unseen := unseenOf(list)
	t.unseenCount = len(unseen)

	limit := t.transientLimit
	if len(unseen) < limit {
		limit = len(unseen)
	}
	// Server order is meaningful (newest first); take the head as-is.
	t.transient = append([]api.Alert(nil), unseen[:limit]...)
	t.armDwellLocked()

	t.metrics.SetUnseen(t.unseenCount)
	t.metrics.IncSuccess(fetchOperation)
	return nil
}

// MarkSeen flags one alert as seen on the server and, only on success,
// applies the flip locally without a re-fetch. On failure local state is
// untouched and the error is returned for the caller to surface.
func (t *Tracker) MarkSeen(ctx context.Context, alertID string) error {
	if alertID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert id is required")
	}
	if err := t.client.MarkAlertSeen(ctx, alertID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.alerts {
		if t.alerts[i].ID != alertID {
			continue
		}
		if !t.alerts[i].Seen {
			t.alerts[i].Seen = true
			if t.unseenCount > 0 {
				t.unseenCount--
			}
			t.metrics.SetUnseen(t.unseenCount)
		}
		break
	}
	return nil
}

// MarkAllSeen issues one concurrent mark-seen mutation per unseen alert and
// waits for all of them. The local flip is all-or-nothing: any failure
// leaves every alert unflipped and returns one aggregate error; the next
// poll reconciles whatever did land server-side.
func (t *Tracker) MarkAllSeen(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]string, 0, t.unseenCount)
	for _, alert := range t.alerts {
		if !alert.Seen {
			ids = append(ids, alert.ID)
		}
	}
	t.mu.Unlock()

	if len(ids) == 0 {
		return ErrNothingUnseen
	}

	var (
		failMu sync.Mutex
		failed error
	)
	var group errgroup.Group
	for _, id := range ids {
		id := id
		group.Go(func() error {
			if err := t.client.MarkAlertSeen(ctx, id); err != nil {
				failMu.Lock()
				failed = multierr.Append(failed, fmt.Errorf("alert %s: %w", id, err))
				failMu.Unlock()
			}
			// Always nil: every mutation must run to completion even
			// when a sibling already failed.
			return nil
		})
	}
	_ = group.Wait()

	if failed != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "mark all alerts seen")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		for i := range t.alerts {
			if t.alerts[i].ID == id {
				t.alerts[i].Seen = true
				break
			}
		}
	}
	t.unseenCount = len(unseenOf(t.alerts))
	t.metrics.SetUnseen(t.unseenCount)
	return nil
}

// Dismiss resets the displayed unseen count without telling the server
// anything was seen. The next Fetch recomputes from server truth and may
// restore a nonzero count.
func (t *Tracker) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unseenCount = 0
	t.metrics.SetUnseen(0)
}

// UnseenCount returns the currently displayed unseen badge value.
func (t *Tracker) UnseenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unseenCount
}

// Transient returns a copy of the bounded popup queue.
func (t *Tracker) Transient() []api.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.Alert(nil), t.transient...)
}

// Alerts returns a copy of the last fetched alert list.
func (t *Tracker) Alerts() []api.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.Alert(nil), t.alerts...)
}

// armDwellLocked re-arms the single transient-clear timer. A fresh fetch
// replaces any pending clear instead of stacking timers.
func (t *Tracker) armDwellLocked() {
	t.dwellGen++
	gen := t.dwellGen
	if t.dwellTimer != nil {
		t.dwellTimer.Stop()
	}
	t.dwellTimer = time.AfterFunc(t.dwell, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen != t.dwellGen {
			return
		}
		t.transient = nil
	})
}

func (t *Tracker) stopDwellTimer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dwellTimer != nil {
		t.dwellTimer.Stop()
	}
}

func unseenOf(alerts []api.Alert) []api.Alert {
	unseen := make([]api.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if !alert.Seen {
			unseen = append(unseen, alert)
		}
	}
	return unseen
}
