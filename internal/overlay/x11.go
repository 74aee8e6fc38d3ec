package overlay

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/streamshield/streamshield/internal/logger"
)

// X11Provider creates a native X11 window for the video overlay and hands
// out its XID. The window is backed with the screen's black pixel, so the
// area shows black until the sink starts rendering into it.
type X11Provider struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	title  string
	width  uint16
	height uint16
	window xproto.Window
}

// NewX11Provider connects to the X server.
func NewX11Provider(title string, width, height int) (*X11Provider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Provider{
		conn:   conn,
		screen: screen,
		title:  title,
		width:  uint16(width),
		height: uint16(height),
	}, nil
}

// DrawableHandle creates and maps the overlay window, returning its XID.
func (p *X11Provider) DrawableHandle() (uintptr, error) {
	wid, err := xproto.NewWindowId(p.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = xproto.CreateWindowChecked(
		p.conn,
		p.screen.RootDepth,
		wid,
		p.screen.Root,
		0, 0,
		p.width, p.height,
		0,
		xproto.WindowClassInputOutput,
		p.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{p.screen.BlackPixel, xproto.EventMaskExposure | xproto.EventMaskStructureNotify},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create overlay window: %w", err)
	}

	if p.title != "" {
		xproto.ChangeProperty(
			p.conn,
			xproto.PropModeReplace,
			wid,
			xproto.AtomWmName,
			xproto.AtomString,
			8,
			uint32(len(p.title)),
			[]byte(p.title),
		)
	}

	if err := xproto.MapWindowChecked(p.conn, wid).Check(); err != nil {
		return 0, fmt.Errorf("failed to map overlay window: %w", err)
	}

	p.window = wid
	logger.WithComponent("overlay").Info().
		Uint32("xid", uint32(wid)).
		Uint16("width", p.width).
		Uint16("height", p.height).
		Msg("Overlay window created")

	return uintptr(wid), nil
}

// Close destroys the window and drops the X connection.
func (p *X11Provider) Close() error {
	if p.window != 0 {
		xproto.DestroyWindow(p.conn, p.window)
		p.window = 0
	}
	p.conn.Close()
	return nil
}

// Name returns the backend name.
func (p *X11Provider) Name() string { return "x11" }
