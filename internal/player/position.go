package player

import (
	"sync"
	"time"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// Tracker is the seek/position subsystem. It refreshes the control surface
// on a fixed cadence, caches the stream duration once a query succeeds, and
// pushes positions tagged OriginSystemRefresh so they can never be mistaken
// for user seeks.
type Tracker struct {
	mu            sync.Mutex
	rt            graph.Runtime
	ctrl          *Controller
	surface       ControlSurface
	duration      time.Duration
	durationKnown bool
	torn          bool
}

// NewTracker creates a tracker gated by the controller's confirmed state.
func NewTracker(rt graph.Runtime, ctrl *Controller, surface ControlSurface) *Tracker {
	return &Tracker{rt: rt, ctrl: ctrl, surface: surface}
}

// Refresh performs one position/duration refresh cycle. Below Paused it
// returns ErrNotDue without touching the graph. Query failures are soft:
// logged, retried on the next cycle.
func (t *Tracker) Refresh() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.torn {
		return ErrTornDown
	}
	if t.ctrl.State() < graph.StatePaused {
		return ErrNotDue
	}

	log := logger.WithComponent("position")

	if !t.durationKnown {
		dur, err := t.rt.QueryDuration()
		if err != nil {
			log.Warn().Err(err).Msg("Could not query stream duration")
		} else {
			t.duration = dur
			t.durationKnown = true
			// The range must reach the surface before the first position
			// push lands on it.
			t.surface.SetRange(dur.Seconds())
			log.Info().Dur("duration", dur).Msg("Stream duration cached")
		}
	}

	pos, err := t.rt.QueryPosition()
	if err != nil {
		log.Warn().Err(err).Msg("Could not query current position")
		return nil
	}

	t.surface.SetPosition(pos.Seconds(), OriginSystemRefresh)
	return nil
}

// RequestSeek converts a slider value in seconds to a pipeline timestamp
// and issues a flush + key-unit seek. Values clamp into [0, duration] when
// the duration is known. This path is only reachable from user interaction.
func (t *Tracker) RequestSeek(seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.torn {
		return ErrTornDown
	}

	if seconds < 0 {
		seconds = 0
	}
	if t.durationKnown && seconds > t.duration.Seconds() {
		seconds = t.duration.Seconds()
	}

	target := time.Duration(seconds * float64(time.Second))
	logger.WithComponent("position").Debug().
		Float64("seconds", seconds).
		Msg("User seek requested")
	return t.rt.Seek(target)
}

// SeekToStart rewinds to time zero with flush semantics. Used by the EOS
// restart loop.
func (t *Tracker) SeekToStart() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.torn {
		return ErrTornDown
	}
	return t.rt.Seek(0)
}

// Position queries the current playback position. Below Paused there is no
// meaningful position and ok is false.
func (t *Tracker) Position() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.torn || t.ctrl.State() < graph.StatePaused {
		return 0, false
	}
	pos, err := t.rt.QueryPosition()
	if err != nil {
		return 0, false
	}
	return pos, true
}

// Duration returns the cached duration, if one is known.
func (t *Tracker) Duration() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration, t.durationKnown
}

// Invalidate drops the cached duration. Only a full pipeline reset calls
// this.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	t.durationKnown = false
	t.duration = 0
	t.mu.Unlock()
}

// Close marks the tracker torn down; pending refreshes and seeks fail with
// ErrTornDown from here on.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.torn = true
	t.durationKnown = false
	t.mu.Unlock()
}
