package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

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

type linkPadCall struct {
	src, pad, dst string
}

// fakeRuntime records every call the topology makes and lets tests inject
// failures per factory name.
type fakeRuntime struct {
	mu          sync.Mutex
	name        string
	elements    map[string]*fakeElement
	failFactory string
	linkErr     error
	linkPadErr  error
	links       [][2]string
	linkPads    []linkPadCall
	padFns      map[string]func(pad string)
	msgs        chan Message
	closed      bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		name:     "cctv-player",
		elements: make(map[string]*fakeElement),
		padFns:   make(map[string]func(pad string)),
		msgs:     make(chan Message, 16),
	}
}

func (r *fakeRuntime) NewElement(factory, name string) (Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factory == r.failFactory && factory != "" {
		return nil, fmt.Errorf("no such factory %q", factory)
	}
	el := &fakeElement{name: name}
	r.elements[name] = el
	return el, nil
}

func (r *fakeRuntime) Link(up, down Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		return r.linkErr
	}
	r.links = append(r.links, [2]string{up.Name(), down.Name()})
	return nil
}

func (r *fakeRuntime) OnPadAdded(src Element, fn func(pad string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.padFns[src.Name()] = fn
}

func (r *fakeRuntime) LinkPad(src Element, pad string, down Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkPadErr != nil {
		return r.linkPadErr
	}
	r.linkPads = append(r.linkPads, linkPadCall{src: src.Name(), pad: pad, dst: down.Name()})
	return nil
}

func (r *fakeRuntime) SetState(s State) error { return nil }

func (r *fakeRuntime) QueryDuration() (time.Duration, error) { return 0, errors.New("not seekable") }

func (r *fakeRuntime) QueryPosition() (time.Duration, error) { return 0, errors.New("no position") }

func (r *fakeRuntime) Seek(pos time.Duration) error { return nil }

func (r *fakeRuntime) Streams(kind StreamKind) []TagSet { return nil }

func (r *fakeRuntime) SetWindowHandle(Element, uintptr) error { return nil }

func (r *fakeRuntime) DumpDot(name string) {}

func (r *fakeRuntime) Messages() <-chan Message { return r.msgs }

func (r *fakeRuntime) Name() string { return r.name }

func (r *fakeRuntime) Close() { r.closed = true }

// firePad simulates the framework announcing a new output pad.
func (r *fakeRuntime) firePad(node, pad string) {
	r.mu.Lock()
	fn := r.padFns[node]
	r.mu.Unlock()
	if fn != nil {
		fn(pad)
	}
}

func testSpecs() []NodeSpec {
	return []NodeSpec{
		{Name: "source", Kind: KindSource, Factory: "rtspsrc", Properties: map[string]interface{}{"latency": uint(200)}},
		{Name: "depay", Kind: KindDepacketizer, Factory: "rtph264depay"},
		{Name: "decode", Kind: KindDecoder, Factory: "avdec_h264"},
		{Name: "sink", Kind: KindSink, Factory: "ximagesink"},
	}
}

func TestBuildStaticLinks(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// All four nodes created, properties applied.
	if len(rt.elements) != 4 {
		t.Errorf("expected 4 elements, got %d", len(rt.elements))
	}
	if got := rt.elements["source"].props["latency"]; got != uint(200) {
		t.Errorf("expected latency 200 on source, got %v", got)
	}

	// The source edge is pending, all other edges resolved immediately.
	links := topo.Links()
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if links[0].Upstream != "source" || links[0].State != LinkPending {
		t.Errorf("expected pending source link, got %+v", links[0])
	}
	for _, l := range links[1:] {
		if l.State != LinkResolved {
			t.Errorf("expected resolved link %s -> %s", l.Upstream, l.Downstream)
		}
	}
	if len(rt.links) != 2 {
		t.Errorf("expected 2 static link calls, got %d", len(rt.links))
	}
}

func TestBuildNodeCreationFailureAborts(t *testing.T) {
	rt := newFakeRuntime()
	rt.failFactory = "avdec_h264"

	if _, err := Build(rt, testSpecs()); err == nil {
		t.Fatal("expected build to fail on element creation")
	}
}

func TestBuildStaticLinkFailureAborts(t *testing.T) {
	rt := newFakeRuntime()
	rt.linkErr = errors.New("caps mismatch")

	if _, err := Build(rt, testSpecs()); err == nil {
		t.Fatal("expected build to fail on static link")
	}
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	rt := newFakeRuntime()
	specs := testSpecs()
	specs[2].Name = "depay"

	if _, err := Build(rt, specs); err == nil {
		t.Fatal("expected build to reject duplicate node name")
	}
}

func TestPadAddedResolvesPendingLink(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	rt.firePad("source", "recv_rtp_src_0")

	if len(rt.linkPads) != 1 {
		t.Fatalf("expected 1 pad link, got %d", len(rt.linkPads))
	}
	call := rt.linkPads[0]
	if call.src != "source" || call.pad != "recv_rtp_src_0" || call.dst != "depay" {
		t.Errorf("unexpected pad link %+v", call)
	}
	if topo.Links()[0].State != LinkResolved {
		t.Error("expected source link to be resolved")
	}
}

func TestSecondPadIsIgnored(t *testing.T) {
	rt := newFakeRuntime()
	if _, err := Build(rt, testSpecs()); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	rt.firePad("source", "recv_rtp_src_0")
	rt.firePad("source", "recv_rtp_src_1")

	if len(rt.linkPads) != 1 {
		t.Errorf("expected exactly 1 pad link, got %d", len(rt.linkPads))
	}
}

func TestResolveFailureLeavesLinkPending(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	rt.linkPadErr = errors.New("pad refused")
	rt.firePad("source", "recv_rtp_src_0")

	if topo.Links()[0].State != LinkPending {
		t.Error("expected failed resolution to leave the link pending")
	}

	// A later pad of the right type can still complete the link.
	rt.linkPadErr = nil
	rt.firePad("source", "recv_rtp_src_0")
	if topo.Links()[0].State != LinkResolved {
		t.Error("expected retry to resolve the link")
	}
}

func TestResolveWithoutDownstreamPanics(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for node with no registered downstream")
		}
	}()
	topo.ResolvePendingLink("sink", "src")
}

func TestSinkLookup(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	sink, ok := topo.Sink()
	if !ok || sink.Name != "sink" {
		t.Errorf("expected sink node, got %v %v", sink, ok)
	}
}

func TestSetNodeProperty(t *testing.T) {
	rt := newFakeRuntime()
	topo, err := Build(rt, testSpecs())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if err := topo.SetNodeProperty("decode", "max-threads", 2); err != nil {
		t.Fatalf("property set failed: %v", err)
	}
	if got := rt.elements["decode"].props["max-threads"]; got != 2 {
		t.Errorf("expected max-threads 2, got %v", got)
	}

	if err := topo.SetNodeProperty("nope", "x", 1); err == nil || !strings.Contains(err.Error(), "unknown node") {
		t.Errorf("expected unknown node error, got %v", err)
	}
}
