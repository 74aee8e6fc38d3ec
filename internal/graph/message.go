package graph

// StreamKind identifies a sub-stream class within the pipeline.
type StreamKind int

const (
	StreamVideo StreamKind = iota
	StreamAudio
	StreamText
)

func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	case StreamText:
		return "text"
	default:
		return "unknown"
	}
}

// TagSet is the attribute map of one sub-stream (codec, language, bitrate).
type TagSet map[string]string

// Tag attribute keys.
const (
	TagCodec    = "codec"
	TagLanguage = "language"
	TagBitrate  = "bitrate"
)

// MessageKind discriminates the bus message variants.
type MessageKind int

const (
	MsgError MessageKind = iota
	MsgEOS
	MsgStateChanged
	MsgTags
	MsgApplication
)

func (k MessageKind) String() string {
	switch k {
	case MsgError:
		return "error"
	case MsgEOS:
		return "eos"
	case MsgStateChanged:
		return "state-changed"
	case MsgTags:
		return "tags"
	case MsgApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Message is an asynchronous notification posted by a graph node. Produced
// on node worker threads, consumed exactly once by the dispatcher in arrival
// order.
type Message struct {
	Kind   MessageKind
	Source string // posting element name

	// Error fields.
	Err   string
	Debug string

	// StateChanged fields. Pending is zero when the framework does not
	// report one.
	Old     State
	New     State
	Pending State

	// Tags field.
	Stream StreamKind

	// Application message name, used for case dispatch.
	Name string
}
