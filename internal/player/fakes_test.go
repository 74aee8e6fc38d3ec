package player

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/streamshield/streamshield/internal/graph"
)

// errTest is the injected failure used across the fakes.
var errTest = errors.New("injected failure")

type fakeElement struct {
	name    string
	props   map[string]interface{}
	propErr error
}

func (e *fakeElement) Name() string { return e.name }

func (e *fakeElement) SetProperty(name string, value interface{}) error {
	if e.propErr != nil {
		return e.propErr
	}
	if e.props == nil {
		e.props = make(map[string]interface{})
	}
	e.props[name] = value
	return nil
}

// fakeRuntime records every state, seek and query interaction and lets tests
// inject failures and canned answers.
type fakeRuntime struct {
	mu       sync.Mutex
	name     string
	elements map[string]*fakeElement
	msgs     chan graph.Message

	setStateErr error
	states      []graph.State

	seekErr error
	seeks   []time.Duration

	duration      time.Duration
	durationErr   error
	durationCalls int

	position      time.Duration
	positionErr   error
	positionCalls int

	streams map[graph.StreamKind][]graph.TagSet

	dots   []string
	closed int
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		name:     "cctv-player",
		elements: make(map[string]*fakeElement),
		msgs:     make(chan graph.Message, 16),
		streams:  make(map[graph.StreamKind][]graph.TagSet),
	}
}

func (r *fakeRuntime) NewElement(factory, name string) (graph.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el := &fakeElement{name: name}
	r.elements[name] = el
	return el, nil
}

func (r *fakeRuntime) Link(up, down graph.Element) error { return nil }

func (r *fakeRuntime) OnPadAdded(src graph.Element, fn func(pad string)) {}

func (r *fakeRuntime) LinkPad(src graph.Element, pad string, down graph.Element) error { return nil }

func (r *fakeRuntime) SetState(s graph.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setStateErr != nil {
		return r.setStateErr
	}
	r.states = append(r.states, s)
	return nil
}

func (r *fakeRuntime) requestedStates() []graph.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]graph.State(nil), r.states...)
}

func (r *fakeRuntime) QueryDuration() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durationCalls++
	return r.duration, r.durationErr
}

func (r *fakeRuntime) QueryPosition() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positionCalls++
	return r.position, r.positionErr
}

func (r *fakeRuntime) Seek(pos time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seekErr != nil {
		return r.seekErr
	}
	r.seeks = append(r.seeks, pos)
	return nil
}

func (r *fakeRuntime) seekCalls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.seeks...)
}

func (r *fakeRuntime) Streams(kind graph.StreamKind) []graph.TagSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streams[kind]
}

func (r *fakeRuntime) SetWindowHandle(sink graph.Element, handle uintptr) error { return nil }

func (r *fakeRuntime) DumpDot(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dots = append(r.dots, name)
}

func (r *fakeRuntime) dumpedDots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dots...)
}

func (r *fakeRuntime) Messages() <-chan graph.Message { return r.msgs }

func (r *fakeRuntime) Name() string { return r.name }

func (r *fakeRuntime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

// fakeSurface records control surface pushes in arrival order.
type fakeSurface struct {
	mu      sync.Mutex
	calls   []string
	reports []string
	labels  map[string]string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{labels: make(map[string]string)}
}

func (s *fakeSurface) SetRange(max float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("range:%g", max))
}

func (s *fakeSurface) SetPosition(value float64, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("position:%g:%s", value, origin))
}

func (s *fakeSurface) SetReport(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "report")
	s.reports = append(s.reports, text)
}

func (s *fakeSurface) SetToggleLabel(id, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("toggle:%s:%s", id, label))
	s.labels[id] = label
}

func (s *fakeSurface) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeInhibitor struct {
	mu       sync.Mutex
	inhibits int
	releases int
}

func (i *fakeInhibitor) Inhibit() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.inhibits++
	return nil
}

func (i *fakeInhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.releases++
	return nil
}

// buildTestTopology assembles a minimal chain with one toggleable filter.
func buildTestTopology(t *testing.T, rt *fakeRuntime) *graph.Topology {
	t.Helper()
	topo, err := graph.Build(rt, []graph.NodeSpec{
		{Name: "source", Kind: graph.KindSource, Factory: "rtspsrc"},
		{Name: "decode", Kind: graph.KindDecoder, Factory: "avdec_h264"},
		{Name: "faceblur", Kind: graph.KindFilter, Factory: "faceblur"},
		{Name: "sink", Kind: graph.KindSink, Factory: "ximagesink"},
	})
	if err != nil {
		t.Fatalf("failed to build test topology: %v", err)
	}
	return topo
}
