package overlay

// HandleProvider is the one-shot capability for obtaining a platform
// drawable. DrawableHandle is invoked exactly once, after the render
// target's drawable becomes available, then the provider is discarded.
// One implementation exists per windowing system; call sites never branch
// on the platform.
type HandleProvider interface {
	// DrawableHandle creates or retrieves the native drawable and returns
	// its platform handle.
	DrawableHandle() (uintptr, error)

	// Close releases the provider's display-server connection.
	Close() error

	// Name returns the backend name (e.g. "x11").
	Name() string
}
