package graph

import (
	"fmt"

	"github.com/streamshield/streamshield/internal/config"
)

// FromConfig expands the configured pipeline description into the ordered
// node list the topology builder consumes: source, depacketize, parse,
// decode, convert, the toggleable filters, a second conversion stage, and
// the render sink.
func FromConfig(cfg *config.Config) []NodeSpec {
	specs := []NodeSpec{
		{
			Name:    "source",
			Kind:    KindSource,
			Factory: "rtspsrc",
			Properties: map[string]interface{}{
				"location": cfg.Source.URI,
				// rtspsrc's latency is a guint; the framework rejects a
				// plain int for it.
				"latency": uint(cfg.Source.LatencyMs),
			},
		},
		{Name: "depay", Kind: KindDepacketizer, Factory: cfg.Chain.Depayloader},
		{Name: "parse", Kind: KindParser, Factory: cfg.Chain.Parser},
		{Name: "decode", Kind: KindDecoder, Factory: cfg.Chain.Decoder},
		{Name: "convert", Kind: KindConverter, Factory: cfg.Chain.Converter},
	}

	for _, f := range cfg.Filters {
		props := make(map[string]interface{}, len(f.Properties)+1)
		if f.Property != "" {
			// Visualization flags are gbooleans.
			props[f.Property] = f.Enabled
		}
		for k, v := range f.Properties {
			props[k] = v
		}
		if len(props) == 0 {
			props = nil
		}
		specs = append(specs, NodeSpec{
			Name:       f.ID,
			Kind:       KindFilter,
			Factory:    f.Factory,
			Properties: props,
		})
	}

	specs = append(specs,
		NodeSpec{Name: "convert2", Kind: KindConverter, Factory: cfg.Chain.Converter},
		NodeSpec{Name: "sink", Kind: KindSink, Factory: cfg.Chain.Sink},
	)
	return specs
}

// Validate rejects descriptions the topology cannot drive: the chain must
// start with exactly one source and end with a sink.
func Validate(specs []NodeSpec) error {
	if len(specs) < 2 {
		return fmt.Errorf("pipeline description needs at least a source and a sink, got %d nodes", len(specs))
	}
	if specs[0].Kind != KindSource {
		return fmt.Errorf("first node %q must be a source, got %s", specs[0].Name, specs[0].Kind)
	}
	for _, s := range specs[1:] {
		if s.Kind == KindSource {
			return fmt.Errorf("multiple source nodes: %q", s.Name)
		}
	}
	if specs[len(specs)-1].Kind != KindSink {
		return fmt.Errorf("last node %q must be a sink, got %s", specs[len(specs)-1].Name, specs[len(specs)-1].Kind)
	}
	return nil
}
