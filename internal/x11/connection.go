// Package x11 wraps the XRandR protocol calls the display backend needs:
// screen-resource enumeration, EDID reads, CRTC/output reconfiguration, and
// the server grab/ungrab pair that makes a layout push atomic.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and the RandR extension state.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server and initializes
// the RandR extension.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	if err := randr.Init(xu.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// SelectChangeNotify subscribes the root window to RandR screen- and
// output-change events so the backend's Attach callback fires on hardware
// transitions (spec §6's attach contract).
func (c *Connection) SelectChangeNotify() error {
	return randr.SelectInputChecked(
		c.XUtil.Conn(), c.Root,
		randr.NotifyMaskScreenChange|randr.NotifyMaskOutputChange|randr.NotifyMaskCrtcChange,
	).Check()
}

// EventLoop starts the main X11 event loop (blocking).
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// GrabServer acquires the exclusive protocol lock spec §6(f) requires for
// the duration of a layout push.
func (c *Connection) GrabServer() error {
	return xproto.GrabServerChecked(c.XUtil.Conn()).Check()
}

// UngrabServer releases the lock. Safe to call even if the grab failed or
// was never taken on a best-effort cleanup path.
func (c *Connection) UngrabServer() {
	_ = xproto.UngrabServerChecked(c.XUtil.Conn()).Check()
}
