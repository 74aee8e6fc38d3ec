package graph

// Kind is a node's capability tag.
type Kind int

const (
	KindSource Kind = iota
	KindDepacketizer
	KindParser
	KindDecoder
	KindConverter
	KindFilter
	KindSink
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindDepacketizer:
		return "depacketizer"
	case KindParser:
		return "parser"
	case KindDecoder:
		return "decoder"
	case KindConverter:
		return "converter"
	case KindFilter:
		return "filter"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// NodeSpec is one entry of the declarative pipeline description.
type NodeSpec struct {
	Name       string
	Kind       Kind
	Factory    string
	Properties map[string]interface{}
}

// Node is a constructed processing stage. Nodes are owned exclusively by
// the Topology that built them.
type Node struct {
	Name    string
	Kind    Kind
	Element Element
}

// LinkState tracks whether a link has been materialized.
type LinkState int

const (
	// LinkPending marks a link whose upstream output pad is not yet known.
	LinkPending LinkState = iota
	// LinkResolved marks a materialized link.
	LinkResolved
)

// Link is a directed edge between two nodes. A Pending link exists for a
// source whose output pad only becomes known after connection; it resolves
// the first time the source announces a concrete pad.
type Link struct {
	Upstream   string
	Downstream string
	State      LinkState
}
