package graph

import "time"

// Element is one processing stage owned by the topology.
type Element interface {
	// Name returns the element's unique name within the graph.
	Name() string

	// SetProperty sets a named property on the element.
	SetProperty(name string, value interface{}) error
}

// Runtime abstracts the media framework the topology drives. The production
// implementation wraps a GStreamer pipeline; tests substitute a fake.
type Runtime interface {
	// NewElement instantiates an element from the given factory.
	NewElement(factory, name string) (Element, error)

	// Link establishes a static link between two elements.
	Link(upstream, downstream Element) error

	// OnPadAdded registers fn to run when src announces a new output pad.
	// fn may be invoked from a framework worker thread.
	OnPadAdded(src Element, fn func(pad string))

	// LinkPad connects a dynamic output pad of src to downstream's input.
	LinkPad(src Element, pad string, downstream Element) error

	// SetState requests a lifecycle transition on the whole graph.
	SetState(s State) error

	// QueryDuration returns the stream duration, if known.
	QueryDuration() (time.Duration, error)

	// QueryPosition returns the current playback position.
	QueryPosition() (time.Duration, error)

	// Seek performs a flush + key-unit seek to pos.
	Seek(pos time.Duration) error

	// Streams returns the tag sets of all known sub-streams of a kind,
	// in discovery order.
	Streams(kind StreamKind) []TagSet

	// SetWindowHandle hands a platform drawable to the sink element.
	SetWindowHandle(sink Element, handle uintptr) error

	// DumpDot writes a pipeline graph visualization under the diagnostics
	// directory, if one was configured at startup. No-op otherwise.
	DumpDot(name string)

	// Messages is the serialized hand-off of bus messages from graph
	// workers to the single consumer.
	Messages() <-chan Message

	// Name returns the top-level graph name, as it appears in the Source
	// field of state-changed messages originating from the graph itself.
	Name() string

	// Close releases all framework resources. The message channel is
	// closed; in-flight messages are dropped.
	Close()
}
