package player

import "errors"

var (
	// ErrStateChangeRejected reports that the graph refused a requested
	// transition. The pipeline stays in its prior state.
	ErrStateChangeRejected = errors.New("state change rejected by graph")

	// ErrUnknownFilter reports a toggle request for a filter id that was
	// never registered. No state is mutated.
	ErrUnknownFilter = errors.New("unknown filter id")

	// ErrTornDown reports an operation on a controller whose resources
	// were already released.
	ErrTornDown = errors.New("player torn down")

	// ErrNotDue reports that a position refresh was skipped because the
	// pipeline has not reached Paused yet.
	ErrNotDue = errors.New("refresh not due before paused")
)
