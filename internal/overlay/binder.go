package overlay

import (
	"fmt"
	"sync"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// Binder hands a platform drawable to the topology's sink node exactly
// once.
type Binder struct {
	mu    sync.Mutex
	rt    graph.Runtime
	topo  *graph.Topology
	bound bool
}

// NewBinder creates a binder for the given runtime and topology.
func NewBinder(rt graph.Runtime, topo *graph.Topology) *Binder {
	return &Binder{rt: rt, topo: topo}
}

// Bind obtains the drawable from the provider and attaches it to the sink.
// A second call is a no-op: the sink keeps its first drawable.
func (b *Binder) Bind(provider HandleProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bound {
		logger.WithComponent("overlay").Debug().Msg("Surface already bound, ignoring")
		return nil
	}

	sink, ok := b.topo.Sink()
	if !ok {
		return fmt.Errorf("topology has no sink node")
	}

	handle, err := provider.DrawableHandle()
	if err != nil {
		return fmt.Errorf("failed to obtain drawable from %s: %w", provider.Name(), err)
	}

	if err := b.rt.SetWindowHandle(sink.Element, handle); err != nil {
		return fmt.Errorf("failed to attach drawable to sink: %w", err)
	}

	b.bound = true
	logger.WithComponent("overlay").Info().
		Str("backend", provider.Name()).
		Uint64("handle", uint64(handle)).
		Msg("Render surface bound to sink")
	return nil
}

// Bound reports whether a drawable was already attached.
func (b *Binder) Bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bound
}
