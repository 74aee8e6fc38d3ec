package graph

import (
	"fmt"
	"sync"

	"github.com/streamshield/streamshield/internal/logger"
)

// Topology owns the pipeline's nodes and the links between them. Static
// links are established at construction; links out of a source node stay
// Pending until the source announces its output pad.
type Topology struct {
	rt    Runtime
	mu    sync.Mutex
	nodes map[string]*Node
	order []string
	links []*Link
}

// Build constructs all nodes of the description and establishes the static
// links between consecutive entries. Any node creation or static link
// failure is an unrecoverable configuration error and aborts construction.
func Build(rt Runtime, specs []NodeSpec) (*Topology, error) {
	log := logger.WithComponent("topology")

	t := &Topology{
		rt:    rt,
		nodes: make(map[string]*Node, len(specs)),
	}

	for _, spec := range specs {
		if _, exists := t.nodes[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate node name %q", spec.Name)
		}

		el, err := rt.NewElement(spec.Factory, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create node %q (factory %q): %w", spec.Name, spec.Factory, err)
		}
		for prop, val := range spec.Properties {
			if err := el.SetProperty(prop, val); err != nil {
				return nil, fmt.Errorf("failed to set %s.%s: %w", spec.Name, prop, err)
			}
		}

		t.nodes[spec.Name] = &Node{Name: spec.Name, Kind: spec.Kind, Element: el}
		t.order = append(t.order, spec.Name)
	}

	for i := 0; i+1 < len(specs); i++ {
		up, down := specs[i], specs[i+1]

		if up.Kind == KindSource {
			// Source output pads only exist once the connection is up.
			link := &Link{Upstream: up.Name, Downstream: down.Name, State: LinkPending}
			t.links = append(t.links, link)

			srcName := up.Name
			rt.OnPadAdded(t.nodes[up.Name].Element, func(pad string) {
				if err := t.ResolvePendingLink(srcName, pad); err != nil {
					log.Error().
						Str("node", srcName).
						Str("pad", pad).
						Err(err).
						Msg("Dynamic link resolution failed")
				}
			})
			continue
		}

		if err := rt.Link(t.nodes[up.Name].Element, t.nodes[down.Name].Element); err != nil {
			return nil, fmt.Errorf("failed to link %s -> %s: %w", up.Name, down.Name, err)
		}
		t.links = append(t.links, &Link{Upstream: up.Name, Downstream: down.Name, State: LinkResolved})
	}

	log.Debug().Int("nodes", len(t.order)).Int("links", len(t.links)).Msg("Topology built")
	return t, nil
}

// ResolvePendingLink connects a freshly announced output pad of nodeName to
// the designated downstream node. Resolving an already-Resolved link is a
// no-op. Calling this for a node that has no registered downstream is a
// programming error in the pipeline description and panics.
func (t *Topology) ResolvePendingLink(nodeName, pad string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var link *Link
	for _, l := range t.links {
		if l.Upstream == nodeName {
			link = l
			break
		}
	}
	if link == nil {
		panic(fmt.Sprintf("graph: no downstream registered for node %q", nodeName))
	}
	if link.State == LinkResolved {
		logger.WithComponent("topology").Debug().
			Str("node", nodeName).
			Str("pad", pad).
			Msg("Link already resolved, ignoring pad")
		return nil
	}

	up := t.nodes[link.Upstream]
	down := t.nodes[link.Downstream]
	if down == nil {
		panic(fmt.Sprintf("graph: downstream node %q does not exist", link.Downstream))
	}

	if err := t.rt.LinkPad(up.Element, pad, down.Element); err != nil {
		return fmt.Errorf("failed to link pad %s of %s to %s: %w", pad, link.Upstream, link.Downstream, err)
	}

	link.State = LinkResolved
	logger.WithComponent("topology").Info().
		Str("node", nodeName).
		Str("pad", pad).
		Str("downstream", link.Downstream).
		Msg("Pending link resolved")
	return nil
}

// Node returns the named node.
func (t *Topology) Node(name string) (*Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[name]
	return n, ok
}

// SetNodeProperty sets a property on the named node's element.
func (t *Topology) SetNodeProperty(name, prop string, value interface{}) error {
	n, ok := t.Node(name)
	if !ok {
		return fmt.Errorf("unknown node %q", name)
	}
	return n.Element.SetProperty(prop, value)
}

// Sink returns the topology's sink node, if present.
func (t *Topology) Sink() (*Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range t.order {
		if t.nodes[name].Kind == KindSink {
			return t.nodes[name], true
		}
	}
	return nil, false
}

// Links returns a snapshot of the topology's links.
func (t *Topology) Links() []Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Link, len(t.links))
	for i, l := range t.links {
		out[i] = *l
	}
	return out
}
