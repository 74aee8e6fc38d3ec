package graph

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/streamshield/streamshield/internal/logger"
)

// busPollInterval bounds how long Close waits for the bus pump to notice
// shutdown.
const busPollInterval = 50 * time.Millisecond

// messageBuffer sizes the hand-off channel between the bus pump and the
// dispatcher. When the buffer fills the pump blocks until the dispatcher
// catches up; messages are never dropped while the pipeline runs.
const messageBuffer = 64

// GstRuntime drives a GStreamer pipeline. It implements Runtime.
type GstRuntime struct {
	pipeline *gst.Pipeline
	dotDir   string

	msgs chan Message
	stop chan struct{}
	wg   sync.WaitGroup

	mu   sync.Mutex
	tags map[StreamKind][]streamTags
}

type streamTags struct {
	source string
	set    TagSet
}

type gstElement struct {
	el *gst.Element
}

func (e *gstElement) Name() string { return e.el.GetName() }

func (e *gstElement) SetProperty(name string, value interface{}) error {
	return e.el.SetProperty(name, value)
}

// NewGstRuntime initializes GStreamer and creates an empty pipeline. The
// diagnostics directory for dot dumps is read once from
// GST_DEBUG_DUMP_DOT_DIR; its absence only disables dumps.
func NewGstRuntime(name string) (*GstRuntime, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	r := &GstRuntime{
		pipeline: pipeline,
		dotDir:   os.Getenv("GST_DEBUG_DUMP_DOT_DIR"),
		msgs:     make(chan Message, messageBuffer),
		stop:     make(chan struct{}),
		tags:     make(map[StreamKind][]streamTags),
	}

	log := logger.WithComponent("gstreamer")
	if r.dotDir != "" {
		log.Info().Str("dir", r.dotDir).Msg("Pipeline graph dumps enabled")
	} else {
		log.Debug().Msg("GST_DEBUG_DUMP_DOT_DIR not set, graph dumps disabled")
	}

	r.wg.Add(1)
	go r.pumpBus()

	return r, nil
}

func (r *GstRuntime) NewElement(factory, name string) (Element, error) {
	el, err := gst.NewElementWithName(factory, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create element %q: %w", factory, err)
	}
	if err := r.pipeline.Add(el); err != nil {
		return nil, fmt.Errorf("failed to add %q to pipeline: %w", name, err)
	}
	return &gstElement{el: el}, nil
}

func (r *GstRuntime) Link(upstream, downstream Element) error {
	up := upstream.(*gstElement)
	down := downstream.(*gstElement)
	if err := up.el.Link(down.el); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", up.Name(), down.Name(), err)
	}
	return nil
}

func (r *GstRuntime) OnPadAdded(src Element, fn func(pad string)) {
	el := src.(*gstElement).el
	el.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		fn(srcPad.GetName())
	})
}

func (r *GstRuntime) LinkPad(src Element, pad string, downstream Element) error {
	srcEl := src.(*gstElement).el
	downEl := downstream.(*gstElement).el

	srcPad := srcEl.GetStaticPad(pad)
	if srcPad == nil {
		// Dynamic pads are not static pads; find the announced pad by name
		// in the pad list.
		pads, err := srcEl.GetPads()
		if err != nil {
			return fmt.Errorf("failed to list pads of %s: %w", srcEl.GetName(), err)
		}
		for _, p := range pads {
			if p.GetName() == pad {
				srcPad = p
				break
			}
		}
	}
	if srcPad == nil {
		return fmt.Errorf("pad %q not found on %s", pad, srcEl.GetName())
	}

	sinkPad := downEl.GetStaticPad("sink")
	if sinkPad == nil {
		return fmt.Errorf("no sink pad on %s", downEl.GetName())
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		return fmt.Errorf("failed to link pad %s of %s to %s: %s", pad, srcEl.GetName(), downEl.GetName(), ret)
	}
	return nil
}

func (r *GstRuntime) SetState(s State) error {
	if err := r.pipeline.SetState(toGstState(s)); err != nil {
		return fmt.Errorf("state change to %s rejected: %w", s, err)
	}
	return nil
}

func (r *GstRuntime) QueryDuration() (time.Duration, error) {
	ok, dur := r.pipeline.QueryDuration(gst.FormatTime)
	if !ok || dur < 0 {
		return 0, fmt.Errorf("duration query failed")
	}
	return time.Duration(dur), nil
}

func (r *GstRuntime) QueryPosition() (time.Duration, error) {
	ok, pos := r.pipeline.QueryPosition(gst.FormatTime)
	if !ok || pos < 0 {
		return 0, fmt.Errorf("position query failed")
	}
	return time.Duration(pos), nil
}

func (r *GstRuntime) Seek(pos time.Duration) error {
	// Flush discards in-flight data; key-unit snaps to the nearest
	// efficiently decodable point, trading accuracy for responsiveness.
	ev := gst.NewSeekEvent(
		1.0,
		gst.FormatTime,
		gst.SeekFlagFlush|gst.SeekFlagKeyUnit,
		gst.SeekTypeSet, int64(pos),
		gst.SeekTypeNone, 0,
	)
	if !r.pipeline.SendEvent(ev) {
		return fmt.Errorf("seek to %s failed", pos)
	}
	return nil
}

func (r *GstRuntime) Streams(kind StreamKind) []TagSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TagSet, 0, len(r.tags[kind]))
	for _, st := range r.tags[kind] {
		out = append(out, st.set)
	}
	return out
}

func (r *GstRuntime) SetWindowHandle(sink Element, handle uintptr) error {
	return setOverlayHandle(sink.(*gstElement).el, handle)
}

func (r *GstRuntime) DumpDot(name string) {
	if r.dotDir == "" {
		return
	}
	r.pipeline.DebugBinToDotFileWithTs(gst.DebugGraphShowAll, name)
	logger.WithComponent("gstreamer").Debug().Str("name", name).Msg("Pipeline graph dumped")
}

func (r *GstRuntime) Messages() <-chan Message { return r.msgs }

func (r *GstRuntime) Name() string { return r.pipeline.GetName() }

// Close drives the pipeline to NULL and releases it. Messages still queued
// on the bus are dropped.
func (r *GstRuntime) Close() {
	close(r.stop)
	r.wg.Wait()

	r.pipeline.SetState(gst.StateNull)
	r.pipeline.Unref()
	close(r.msgs)

	logger.WithComponent("gstreamer").Info().Msg("Pipeline released")
}

// pumpBus is the single bus consumer on the framework side. It converts
// GStreamer messages into graph messages and forwards them on the hand-off
// channel in arrival order.
func (r *GstRuntime) pumpBus() {
	defer r.wg.Done()

	bus := r.pipeline.GetPipelineBus()

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		gmsg := bus.TimedPop(busPollInterval)
		if gmsg == nil {
			continue
		}

		msg, ok := r.convert(gmsg)
		if !ok {
			continue
		}
		if !deliver(r.msgs, r.stop, msg) {
			return
		}
	}
}

// deliver blocks until the dispatcher accepts the message or shutdown
// begins. Dropping is not an option: a lost state-changed confirmation would
// desync the observed pipeline state for good.
func deliver(msgs chan<- Message, stop <-chan struct{}, msg Message) bool {
	select {
	case msgs <- msg:
		return true
	case <-stop:
		return false
	}
}

func (r *GstRuntime) convert(gmsg *gst.Message) (Message, bool) {
	switch gmsg.Type() {
	case gst.MessageError:
		gerr := gmsg.ParseError()
		msg := Message{Kind: MsgError, Source: gmsg.Source(), Err: gerr.Error()}
		if debug := gerr.DebugString(); debug != "" {
			msg.Debug = debug
		}
		return msg, true

	case gst.MessageEOS:
		return Message{Kind: MsgEOS, Source: gmsg.Source()}, true

	case gst.MessageStateChanged:
		old, next := gmsg.ParseStateChanged()
		return Message{
			Kind:   MsgStateChanged,
			Source: gmsg.Source(),
			Old:    fromGstState(old),
			New:    fromGstState(next),
		}, true

	case gst.MessageTag:
		tags := gmsg.ParseTags()
		if tags == nil {
			return Message{}, false
		}
		kind, set := classifyTags(tags)
		if len(set) == 0 {
			return Message{}, false
		}
		r.recordTags(kind, gmsg.Source(), set)
		return Message{Kind: MsgTags, Source: gmsg.Source(), Stream: kind}, true

	case gst.MessageApplication:
		name := ""
		if st := gmsg.GetStructure(); st != nil {
			name = st.Name()
		}
		return Message{Kind: MsgApplication, Source: gmsg.Source(), Name: name}, true
	}

	return Message{}, false
}

// recordTags replaces the tag set of the sub-stream identified by its
// posting element. Sub-streams keep their discovery order.
func (r *GstRuntime) recordTags(kind StreamKind, source string, set TagSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, st := range r.tags[kind] {
		if st.source == source {
			r.tags[kind][i].set = set
			return
		}
	}
	r.tags[kind] = append(r.tags[kind], streamTags{source: source, set: set})
}

// classifyTags maps a GStreamer tag list onto a stream kind and the subset
// of attributes the metadata report cares about.
func classifyTags(tags *gst.TagList) (StreamKind, TagSet) {
	set := TagSet{}

	if codec, ok := tags.GetString(gst.TagVideoCodec); ok {
		set[TagCodec] = codec
		return StreamVideo, set
	}

	audio := false
	if codec, ok := tags.GetString(gst.TagAudioCodec); ok {
		set[TagCodec] = codec
		audio = true
	}
	if rate, ok := tags.GetUint32(gst.TagBitrate); ok {
		set[TagBitrate] = fmt.Sprintf("%d", rate)
		audio = true
	}
	if lang, ok := tags.GetString(gst.TagLanguageCode); ok {
		set[TagLanguage] = lang
		if audio {
			return StreamAudio, set
		}
		return StreamText, set
	}
	if audio {
		return StreamAudio, set
	}
	return StreamVideo, TagSet{}
}

func toGstState(s State) gst.State {
	switch s {
	case StateReady:
		return gst.StateReady
	case StatePaused:
		return gst.StatePaused
	case StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGstState(s gst.State) State {
	switch s {
	case gst.StateReady:
		return StateReady
	case gst.StatePaused:
		return StatePaused
	case gst.StatePlaying:
		return StatePlaying
	default:
		return StateNull
	}
}
