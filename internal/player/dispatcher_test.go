package player

import (
	"testing"
	"time"

	"github.com/streamshield/streamshield/internal/graph"
)

func newTestDispatcher(rt *fakeRuntime, surface *fakeSurface, idle Inhibitor) (*Dispatcher, *Controller, *Tracker) {
	ctrl := NewController(rt)
	tracker := NewTracker(rt, ctrl, surface)
	meta := NewExtractor(rt, surface)
	return NewDispatcher(rt, ctrl, tracker, meta, idle), ctrl, tracker
}

func TestErrorMessageStopsPlayback(t *testing.T) {
	rt := newFakeRuntime()
	d, _, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	d.handle(graph.Message{
		Kind:   graph.MsgError,
		Source: "decode",
		Err:    "no valid frames decoded",
		Debug:  "gstdecoder.c(1234)",
	})

	if d.LastError() != "no valid frames decoded" {
		t.Errorf("expected last error recorded, got %q", d.LastError())
	}
	// The stream error is recoverable: playback stops, the graph survives.
	if got := rt.requestedStates(); len(got) != 1 || got[0] != graph.StateReady {
		t.Errorf("expected a single Ready request, got %v", got)
	}
	if rt.closed != 0 {
		t.Error("expected the graph to survive a stream error")
	}
}

func TestEndOfStreamRestartsExactlyOnce(t *testing.T) {
	rt := newFakeRuntime()
	d, _, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	d.handle(graph.Message{Kind: graph.MsgEOS, Source: "sink"})

	// Stop, rewind, play. One seek, to zero.
	if got := rt.requestedStates(); len(got) != 2 || got[0] != graph.StateReady || got[1] != graph.StatePlaying {
		t.Errorf("expected [READY PLAYING] requests, got %v", got)
	}
	seeks := rt.seekCalls()
	if len(seeks) != 1 || seeks[0] != 0 {
		t.Errorf("expected exactly one seek to 0, got %v", seeks)
	}
}

func TestEndOfStreamReplayDespiteSeekFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.seekErr = errTest
	d, _, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	d.handle(graph.Message{Kind: graph.MsgEOS, Source: "sink"})

	// The rewind failed but play is still re-attempted.
	if got := rt.requestedStates(); len(got) != 2 || got[1] != graph.StatePlaying {
		t.Errorf("expected replay after failed rewind, got %v", got)
	}
}

func TestStateChangedFilteredBySource(t *testing.T) {
	rt := newFakeRuntime()
	d, ctrl, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	// Node-internal transitions never touch the observed state.
	d.handle(graph.Message{
		Kind:   graph.MsgStateChanged,
		Source: "decode",
		Old:    graph.StateReady,
		New:    graph.StatePaused,
	})
	if ctrl.State() != graph.StateNull {
		t.Errorf("expected node transition to be ignored, got %s", ctrl.State())
	}

	d.handle(graph.Message{
		Kind:   graph.MsgStateChanged,
		Source: "cctv-player",
		Old:    graph.StateReady,
		New:    graph.StatePaused,
	})
	if ctrl.State() != graph.StatePaused {
		t.Errorf("expected PAUSED after graph transition, got %s", ctrl.State())
	}
}

func TestReachingPausedTriggersEagerRefresh(t *testing.T) {
	rt := newFakeRuntime()
	rt.duration = 60 * time.Second
	rt.position = 0
	surface := newFakeSurface()
	d, _, _ := newTestDispatcher(rt, surface, nil)

	d.handle(graph.Message{
		Kind:   graph.MsgStateChanged,
		Source: "cctv-player",
		Old:    graph.StateReady,
		New:    graph.StatePaused,
	})

	calls := surface.callLog()
	if len(calls) != 2 || calls[0] != "range:60" || calls[1] != "position:0:system-refresh" {
		t.Errorf("expected eager range and position pushes, got %v", calls)
	}
}

func TestIdleInhibitFollowsPlaying(t *testing.T) {
	rt := newFakeRuntime()
	idle := &fakeInhibitor{}
	d, _, _ := newTestDispatcher(rt, newFakeSurface(), idle)

	d.handle(graph.Message{
		Kind: graph.MsgStateChanged, Source: "cctv-player",
		Old: graph.StatePaused, New: graph.StatePlaying,
	})
	if idle.inhibits != 1 || idle.releases != 0 {
		t.Errorf("expected inhibit on entering Playing, got %+v", idle)
	}

	d.handle(graph.Message{
		Kind: graph.MsgStateChanged, Source: "cctv-player",
		Old: graph.StatePlaying, New: graph.StatePaused,
	})
	if idle.inhibits != 1 || idle.releases != 1 {
		t.Errorf("expected release on leaving Playing, got %+v", idle)
	}
}

func TestTagsMessageMarksReportStale(t *testing.T) {
	rt := newFakeRuntime()
	rt.streams[graph.StreamVideo] = []graph.TagSet{{graph.TagCodec: "H.264"}}
	surface := newFakeSurface()

	ctrl := NewController(rt)
	tracker := NewTracker(rt, ctrl, surface)
	meta := NewExtractor(rt, surface)
	d := NewDispatcher(rt, ctrl, tracker, meta, nil)

	first := meta.Report()

	rt.mu.Lock()
	rt.streams[graph.StreamVideo] = []graph.TagSet{{graph.TagCodec: "H.265"}}
	rt.mu.Unlock()

	// Without a tags message the cached report stands.
	if meta.Report() != first {
		t.Fatal("expected cached report before invalidation")
	}

	d.handle(graph.Message{Kind: graph.MsgTags, Source: "decode", Stream: graph.StreamVideo})
	if meta.Report() == first {
		t.Error("expected rebuilt report after tags message")
	}
}

func TestApplicationTagsChangedInvalidatesAll(t *testing.T) {
	rt := newFakeRuntime()
	rt.streams[graph.StreamAudio] = []graph.TagSet{{graph.TagCodec: "AAC"}}
	surface := newFakeSurface()

	ctrl := NewController(rt)
	tracker := NewTracker(rt, ctrl, surface)
	meta := NewExtractor(rt, surface)
	d := NewDispatcher(rt, ctrl, tracker, meta, nil)

	first := meta.Report()

	rt.mu.Lock()
	rt.streams[graph.StreamAudio] = []graph.TagSet{{graph.TagCodec: "Opus"}}
	rt.mu.Unlock()

	d.handle(graph.Message{Kind: graph.MsgApplication, Source: "decode", Name: "tags-changed"})
	if meta.Report() == first {
		t.Error("expected rebuilt report after tags-changed application message")
	}
}

func TestDispatcherConsumesFromChannel(t *testing.T) {
	rt := newFakeRuntime()
	d, ctrl, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	d.Start()
	defer d.Stop()

	rt.msgs <- graph.Message{
		Kind:   graph.MsgStateChanged,
		Source: "cctv-player",
		Old:    graph.StateNull,
		New:    graph.StateReady,
	}

	deadline := time.After(2 * time.Second)
	for ctrl.State() != graph.StateReady {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the dispatcher to confirm the transition")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStoppedDispatcherDropsMessages(t *testing.T) {
	rt := newFakeRuntime()
	d, ctrl, _ := newTestDispatcher(rt, newFakeSurface(), nil)

	d.Start()
	d.Stop()

	rt.msgs <- graph.Message{
		Kind:   graph.MsgStateChanged,
		Source: "cctv-player",
		Old:    graph.StateNull,
		New:    graph.StateReady,
	}

	time.Sleep(50 * time.Millisecond)
	if ctrl.State() != graph.StateNull {
		t.Errorf("expected message after stop to be dropped, got %s", ctrl.State())
	}
}
