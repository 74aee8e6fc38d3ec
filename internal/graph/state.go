package graph

// State is the pipeline lifecycle state. The values form a monotonic total
// order: Null < Ready < Paused < Playing. Comparisons like "state < Paused"
// gate position refreshes and render-vs-blank decisions.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

// String returns the state name used in logs and dot dump file names.
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}
