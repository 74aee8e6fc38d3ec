package player

// Origin tags a position value with what produced it. The seek path only
// acts on user-initiated values, so programmatic pushes can never loop back
// into a seek.
type Origin int

const (
	// OriginUser marks a value coming from genuine user interaction.
	OriginUser Origin = iota
	// OriginSystemRefresh marks a value pushed by the periodic refresh.
	OriginSystemRefresh
)

func (o Origin) String() string {
	if o == OriginUser {
		return "user"
	}
	return "system-refresh"
}

// ControlSurface is the consumed contract of whatever front-end displays
// playback state. Implementations receive pushed updates; commands travel
// the other way through the controller's request methods.
type ControlSurface interface {
	// SetRange propagates a newly discovered duration, in seconds.
	SetRange(max float64)

	// SetPosition pushes the current position, in seconds. Implementations
	// must not route values tagged OriginSystemRefresh into a seek.
	SetPosition(value float64, origin Origin)

	// SetReport replaces the stream metadata report text.
	SetReport(text string)

	// SetToggleLabel updates the displayed label of a filter toggle.
	SetToggleLabel(id, label string)
}

// Inhibitor keeps the host from blanking or sleeping while playback runs.
type Inhibitor interface {
	Inhibit() error
	Release() error
}
