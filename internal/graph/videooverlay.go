package graph

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-plugins-base-1.0
#cgo LDFLAGS: -lgstvideo-1.0

#include <gst/gst.h>
#include <gst/video/videooverlay.h>

static gboolean
overlay_set_window_handle(GstElement *element, guintptr handle)
{
	if (!GST_IS_VIDEO_OVERLAY(element)) {
		return FALSE;
	}
	gst_video_overlay_set_window_handle(GST_VIDEO_OVERLAY(element), handle);
	return TRUE;
}
*/
import "C"

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
)

// setOverlayHandle hands a native window to a sink implementing the
// GstVideoOverlay interface. The binding does not wrap this interface, so
// the call goes through the C API directly.
func setOverlayHandle(el *gst.Element, handle uintptr) error {
	ok := C.overlay_set_window_handle((*C.GstElement)(el.Unsafe()), C.guintptr(handle))
	if ok == C.FALSE {
		return fmt.Errorf("element %s does not implement the video overlay interface", el.GetName())
	}
	return nil
}
