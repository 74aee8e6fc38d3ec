package player

import (
	"fmt"
	"strings"
	"sync"

	"github.com/streamshield/streamshield/internal/graph"
	"github.com/streamshield/streamshield/internal/logger"
)

// Extractor renders the textual report of the pipeline's sub-streams.
// Tag-change notifications only mark the report stale; the rebuild happens
// lazily on the next Report call, so back-to-back notifications of one
// stream kind can never cause a double refresh.
type Extractor struct {
	mu      sync.Mutex
	rt      graph.Runtime
	surface ControlSurface
	report  string
	built   bool
	stale   bool
}

// NewExtractor creates an extractor reading sub-stream tags from the
// runtime.
func NewExtractor(rt graph.Runtime, surface ControlSurface) *Extractor {
	return &Extractor{rt: rt, surface: surface}
}

// Invalidate marks the report stale for the given stream kind. The report
// is a full replacement, so any stale kind forces a complete rebuild.
func (e *Extractor) Invalidate(kind graph.StreamKind) {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
	logger.WithComponent("metadata").Debug().
		Str("stream", kind.String()).
		Msg("Stream metadata marked stale")
}

// InvalidateAll marks the whole report stale.
func (e *Extractor) InvalidateAll() {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
}

// Report returns the current stream report, rebuilding it first if stale.
// A rebuild pushes the new text to the control surface.
func (e *Extractor) Report() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.built || e.stale {
		e.report = e.render()
		e.built = true
		e.stale = false
		e.surface.SetReport(e.report)
	}
	return e.report
}

// render regenerates the report from scratch: video streams first, then
// audio, then text, each kind in ascending index order. A stream with no
// tag set produces no block at all.
func (e *Extractor) render() string {
	var b strings.Builder

	for i, tags := range e.rt.Streams(graph.StreamVideo) {
		if len(tags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "video stream %d:\n", i)
		fmt.Fprintf(&b, "  codec: %s\n", tagOr(tags, graph.TagCodec, "unknown"))
	}

	for i, tags := range e.rt.Streams(graph.StreamAudio) {
		if len(tags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\naudio stream %d:\n", i)
		fmt.Fprintf(&b, "  codec: %s\n", tagOr(tags, graph.TagCodec, "unknown"))
		if lang, ok := tags[graph.TagLanguage]; ok {
			fmt.Fprintf(&b, "  language: %s\n", lang)
		}
		if rate, ok := tags[graph.TagBitrate]; ok {
			fmt.Fprintf(&b, "  bitrate: %s\n", rate)
		}
	}

	for i, tags := range e.rt.Streams(graph.StreamText) {
		if len(tags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\nsubtitle stream %d:\n", i)
		if lang, ok := tags[graph.TagLanguage]; ok {
			fmt.Fprintf(&b, "  language: %s\n", lang)
		}
	}

	return b.String()
}

func tagOr(tags graph.TagSet, key, fallback string) string {
	if v, ok := tags[key]; ok && v != "" {
		return v
	}
	return fallback
}
