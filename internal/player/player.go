package player

import (
	"sync"
	"time"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// refreshInterval is the fixed cadence of the position/duration refresh.
const refreshInterval = time.Second

// Player bundles the orchestration components around one pipeline: the
// lifecycle controller, the bus dispatcher, the seek/position tracker, the
// metadata extractor and the filter toggles.
type Player struct {
	rt   graph.Runtime
	topo *graph.Topology

	Ctrl    *Controller
	Tracker *Tracker
	Meta    *Extractor
	Toggles *Toggles

	disp *Dispatcher

	tickDone chan struct{}
	wg       sync.WaitGroup
	downOnce sync.Once
}

// New assembles a player over a built topology. idle may be nil.
func New(rt graph.Runtime, topo *graph.Topology, surface ControlSurface, idle Inhibitor) *Player {
	ctrl := NewController(rt)
	tracker := NewTracker(rt, ctrl, surface)
	meta := NewExtractor(rt, surface)

	return &Player{
		rt:       rt,
		topo:     topo,
		Ctrl:     ctrl,
		Tracker:  tracker,
		Meta:     meta,
		Toggles:  NewToggles(topo, surface),
		disp:     NewDispatcher(rt, ctrl, tracker, meta, idle),
		tickDone: make(chan struct{}),
	}
}

// Topology returns the graph topology the player drives.
func (p *Player) Topology() *graph.Topology { return p.topo }

// LastError returns the most recent stream error text, if any.
func (p *Player) LastError() string { return p.disp.LastError() }

// Start launches the bus dispatcher and the periodic refresh, then requests
// playback.
func (p *Player) Start() error {
	p.disp.Start()

	p.wg.Add(1)
	go p.tick()

	if err := p.Ctrl.RequestPlay(); err != nil {
		return err
	}
	logger.WithComponent("player").Info().Msg("Playback requested")
	return nil
}

// tick drives the tracker on the fixed refresh cadence. ErrNotDue is the
// normal idle answer below Paused.
func (p *Player) tick() {
	defer p.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.tickDone:
			return
		case <-ticker.C:
			if err := p.Tracker.Refresh(); err != nil && err != ErrNotDue && err != ErrTornDown {
				logger.WithComponent("player").Warn().Err(err).Msg("Periodic refresh failed")
			}
		}
	}
}

// Teardown halts dispatch and refresh, then releases the graph. Safe from
// any state and idempotent. In-flight bus messages are discarded.
func (p *Player) Teardown() {
	p.downOnce.Do(func() {
		close(p.tickDone)
		p.wg.Wait()
		p.disp.Stop()
		p.Tracker.Close()
		p.Ctrl.Teardown()
		logger.WithComponent("player").Info().Msg("Player torn down")
	})
}
