package player

import (
	"sync"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// applicationTagsChanged is the application message name graph nodes use to
// hand tag notifications from their worker threads to the dispatcher.
const applicationTagsChanged = "tags-changed"

// Dispatcher is the single consumer of the graph's bus messages. Messages
// may originate on multiple node worker threads; the hand-off channel
// serializes them, so handlers never run concurrently with each other.
type Dispatcher struct {
	ctrl    *Controller
	tracker *Tracker
	meta    *Extractor
	idle    Inhibitor // optional

	graphName string
	msgs      <-chan graph.Message
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	lastErr string
}

// NewDispatcher wires the dispatcher to its collaborators. graphName is the
// top-level graph's element name; state-changed messages from any other
// source are node-internal and ignored.
func NewDispatcher(rt graph.Runtime, ctrl *Controller, tracker *Tracker, meta *Extractor, idle Inhibitor) *Dispatcher {
	return &Dispatcher{
		ctrl:      ctrl,
		tracker:   tracker,
		meta:      meta,
		idle:      idle,
		graphName: rt.Name(),
		msgs:      rt.Messages(),
		done:      make(chan struct{}),
	}
}

// Start launches the consumer goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop halts consumption. Messages still in flight are discarded, not
// processed.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

// LastError returns the text of the most recent stream error, if any.
func (d *Dispatcher) LastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case msg, ok := <-d.msgs:
			if !ok {
				return
			}
			select {
			case <-d.done:
				// Teardown began: stale messages are dropped.
				return
			default:
			}
			d.handle(msg)
		}
	}
}

func (d *Dispatcher) handle(msg graph.Message) {
	log := logger.WithComponent("dispatcher")

	switch msg.Kind {
	case graph.MsgError:
		debug := msg.Debug
		if debug == "" {
			debug = "none"
		}
		log.Error().
			Str("source", msg.Source).
			Str("message", msg.Err).
			Str("debug", debug).
			Msg("Error received from graph")

		d.mu.Lock()
		d.lastErr = msg.Err
		d.mu.Unlock()

		// Recoverable: stop playback, leave the control surface usable.
		if err := d.ctrl.RequestStop(); err != nil {
			log.Warn().Err(err).Msg("Could not stop playback after stream error")
		}

	case graph.MsgEOS:
		log.Info().Msg("End-of-stream reached, restarting")
		if err := d.ctrl.RequestStop(); err != nil {
			log.Warn().Err(err).Msg("Could not reach ready for restart")
		}
		// Best-effort restart loop: a failed rewind is logged and play is
		// still re-attempted.
		if err := d.tracker.SeekToStart(); err != nil {
			log.Warn().Err(err).Msg("Restart seek failed")
		}
		if err := d.ctrl.RequestPlay(); err != nil {
			log.Warn().Err(err).Msg("Could not resume playing after end-of-stream")
		}

	case graph.MsgStateChanged:
		if msg.Source != d.graphName {
			// Node-internal transition, not the top-level graph.
			return
		}
		d.ctrl.ConfirmTransition(msg.Old, msg.New)

		if msg.Old == graph.StateReady && msg.New == graph.StatePaused {
			// One-shot refresh for responsiveness ahead of the periodic
			// tick.
			if err := d.tracker.Refresh(); err != nil && err != ErrNotDue {
				log.Warn().Err(err).Msg("Eager refresh failed")
			}
		}

		if d.idle != nil {
			switch {
			case msg.New == graph.StatePlaying:
				if err := d.idle.Inhibit(); err != nil {
					log.Warn().Err(err).Msg("Could not inhibit idle")
				}
			case msg.Old == graph.StatePlaying:
				if err := d.idle.Release(); err != nil {
					log.Warn().Err(err).Msg("Could not release idle inhibit")
				}
			}
		}

	case graph.MsgTags:
		d.meta.Invalidate(msg.Stream)

	case graph.MsgApplication:
		if msg.Name == applicationTagsChanged {
			d.meta.InvalidateAll()
		} else {
			log.Debug().Str("name", msg.Name).Msg("Unhandled application message")
		}
	}
}
