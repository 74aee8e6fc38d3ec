package player

import (
	"fmt"
	"sync"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// Controller owns the pipeline lifecycle state machine. State starts at
// Null and is only ever mutated on the confirmed-transition path: requests
// go down to the graph, the graph answers asynchronously with a
// state-changed bus message, and the dispatcher forwards that confirmation
// here.
type Controller struct {
	mu    sync.Mutex
	rt    graph.Runtime
	state graph.State
	torn  bool
}

// NewController creates a controller for the given runtime, starting at
// Null.
func NewController(rt graph.Runtime) *Controller {
	return &Controller{rt: rt, state: graph.StateNull}
}

// State returns the last confirmed pipeline state.
func (c *Controller) State() graph.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestPlay asks the graph for Playing. From Null or Ready the graph
// traverses Paused internally first; that multi-step transition is valid
// and each hop is confirmed separately on the bus.
func (c *Controller) RequestPlay() error {
	return c.request(graph.StatePlaying)
}

// RequestPause asks the graph for Paused.
func (c *Controller) RequestPause() error {
	return c.request(graph.StatePaused)
}

// RequestStop asks the graph for Ready, which stops playback but keeps the
// graph's resources so play can be re-issued.
func (c *Controller) RequestStop() error {
	return c.request(graph.StateReady)
}

func (c *Controller) request(target graph.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.torn {
		return ErrTornDown
	}
	if err := c.rt.SetState(target); err != nil {
		// Rejected request: state stays what it was.
		return fmt.Errorf("%w: %v", ErrStateChangeRejected, err)
	}
	logger.WithComponent("controller").Debug().
		Str("target", target.String()).
		Msg("State change requested")
	return nil
}

// ConfirmTransition applies a transition the graph has actually performed.
// Every confirmed transition logs the new state name and, when a
// diagnostics directory is configured, dumps the pipeline graph under a
// name derived from the transition.
func (c *Controller) ConfirmTransition(old, next graph.State) {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()

	logger.WithComponent("controller").Info().
		Str("old", old.String()).
		Str("new", next.String()).
		Msgf("State set to %s", next)

	c.rt.DumpDot(fmt.Sprintf("cctv%s_%s", old, next))
}

// Teardown drives the graph to Null and releases it. Irreversible for this
// controller instance; safe to invoke from any state, including repeatedly.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		return
	}
	c.torn = true
	c.state = graph.StateNull
	c.mu.Unlock()

	if err := c.rt.SetState(graph.StateNull); err != nil {
		logger.WithComponent("controller").Warn().Err(err).Msg("Null transition failed during teardown")
	}
	c.rt.Close()
	logger.WithComponent("controller").Info().Msg("Pipeline torn down")
}
