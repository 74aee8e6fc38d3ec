// Package inhibit holds a screensaver inhibition while the pipeline plays,
// so an unattended CCTV wall never blanks mid-stream.
package inhibit

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/streamshield/streamshield/internal/logger"
)

const (
	screensaverService = "org.freedesktop.ScreenSaver"
	screensaverPath    = "/org/freedesktop/ScreenSaver"
	inhibitMethod      = "org.freedesktop.ScreenSaver.Inhibit"
	uninhibitMethod    = "org.freedesktop.ScreenSaver.UnInhibit"
)

// ScreenSaver talks to the session bus screensaver service. It implements
// player.Inhibitor.
type ScreenSaver struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	appName string
	reason  string
	cookie  uint32
	held    bool
}

// NewScreenSaver connects to the session bus.
func NewScreenSaver(appName, reason string) (*ScreenSaver, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &ScreenSaver{conn: conn, appName: appName, reason: reason}, nil
}

// Inhibit acquires an inhibition cookie. Holding one already is a no-op.
func (s *ScreenSaver) Inhibit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held {
		return nil
	}

	obj := s.conn.Object(screensaverService, dbus.ObjectPath(screensaverPath))
	call := obj.Call(inhibitMethod, 0, s.appName, s.reason)
	if call.Err != nil {
		return fmt.Errorf("inhibit call failed: %w", call.Err)
	}
	if err := call.Store(&s.cookie); err != nil {
		return fmt.Errorf("failed to read inhibit cookie: %w", err)
	}

	s.held = true
	logger.WithComponent("inhibit").Debug().Uint32("cookie", s.cookie).Msg("Screensaver inhibited")
	return nil
}

// Release returns the cookie. Releasing without holding one is a no-op.
func (s *ScreenSaver) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		return nil
	}

	obj := s.conn.Object(screensaverService, dbus.ObjectPath(screensaverPath))
	if call := obj.Call(uninhibitMethod, 0, s.cookie); call.Err != nil {
		return fmt.Errorf("uninhibit call failed: %w", call.Err)
	}

	s.held = false
	logger.WithComponent("inhibit").Debug().Uint32("cookie", s.cookie).Msg("Screensaver inhibit released")
	return nil
}

// Close releases any held cookie and the bus connection.
func (s *ScreenSaver) Close() error {
	if err := s.Release(); err != nil {
		logger.WithComponent("inhibit").Warn().Err(err).Msg("Release on close failed")
	}
	return s.conn.Close()
}
