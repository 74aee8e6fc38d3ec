package player

import (
	"fmt"
	"sync"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// FilterToggle is the visualization state of one toggleable privacy filter.
// The label is a pure function of the enabled flag.
type FilterToggle struct {
	ID       string
	Node     string
	Property string
	Enabled  bool
	OnLabel  string
	OffLabel string
}

// Label returns the label matching the current enabled state.
func (ft FilterToggle) Label() string {
	if ft.Enabled {
		return ft.OnLabel
	}
	return ft.OffLabel
}

// Toggles owns the per-filter toggle records. Each record is mutated only
// by its own toggle command, and toggling touches nothing but the single
// visualization property of that filter's node.
type Toggles struct {
	mu      sync.Mutex
	topo    *graph.Topology
	surface ControlSurface
	items   map[string]*FilterToggle
	order   []string
}

// NewToggles creates an empty toggle controller over the topology.
func NewToggles(topo *graph.Topology, surface ControlSurface) *Toggles {
	return &Toggles{
		topo:    topo,
		surface: surface,
		items:   make(map[string]*FilterToggle),
	}
}

// Register adds a toggle record for a filter node. Filters without a
// visualization property cannot be toggled and are rejected here.
func (t *Toggles) Register(ft FilterToggle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[ft.ID]; exists {
		return fmt.Errorf("filter %q already registered", ft.ID)
	}
	if ft.Property == "" {
		return fmt.Errorf("filter %q has no toggle property", ft.ID)
	}
	if _, ok := t.topo.Node(ft.Node); !ok {
		return fmt.Errorf("filter %q references unknown node %q", ft.ID, ft.Node)
	}

	rec := ft
	t.items[ft.ID] = &rec
	t.order = append(t.order, ft.ID)
	return nil
}

// Toggle flips the filter's enabled flag, mirrors it into the node's
// visualization property and swaps the displayed label. Two toggles restore
// the original state. An unknown id mutates nothing.
func (t *Toggles) Toggle(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ft, ok := t.items[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}

	next := !ft.Enabled
	// The visualization flag is a gboolean on the element.
	if err := t.topo.SetNodeProperty(ft.Node, ft.Property, next); err != nil {
		// Property update failed: the record keeps its prior state.
		return fmt.Errorf("failed to update filter %q: %w", id, err)
	}

	ft.Enabled = next
	t.surface.SetToggleLabel(id, ft.Label())

	logger.WithComponent("filters").Info().
		Str("filter", id).
		Bool("enabled", ft.Enabled).
		Msg("Filter toggled")
	return nil
}

// Get returns a copy of the named toggle record.
func (t *Toggles) Get(id string) (FilterToggle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ft, ok := t.items[id]
	if !ok {
		return FilterToggle{}, false
	}
	return *ft, true
}

// List returns copies of all toggle records in registration order.
func (t *Toggles) List() []FilterToggle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FilterToggle, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.items[id])
	}
	return out
}
