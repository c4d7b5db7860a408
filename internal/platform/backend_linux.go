//go:build linux

// Package platform implements the display.Backend contract against a real
// X server via XRandR.
package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/1broseidon/displayd/internal/display"
	"github.com/1broseidon/displayd/internal/x11"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// X11Backend implements display.Backend against a live X11/RandR
// connection (spec §6, wiring per SPEC_FULL §4.6).
type X11Backend struct {
	conn     *x11.Connection
	logger   *slog.Logger
	callback func(display.ConcreteLayout)
}

var _ display.Backend = (*X11Backend)(nil)

// NewX11Backend wraps an existing X11 connection.
func NewX11Backend(conn *x11.Connection, logger *slog.Logger) *X11Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Backend{conn: conn, logger: logger}
}

// NewX11BackendFromDisplay opens a fresh connection to the X server named
// by $DISPLAY.
func NewX11BackendFromDisplay(logger *slog.Logger) (*X11Backend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewX11Backend(conn, logger), nil
}

// Attach registers callback and synchronously invokes it with the current
// hardware state, then subscribes to RandR screen-change notifications so
// future transitions re-invoke it (spec §6).
func (b *X11Backend) Attach(callback func(display.ConcreteLayout)) error {
	b.callback = callback

	if err := b.conn.SelectChangeNotify(); err != nil {
		return newBackendErr("attach", err, false)
	}

	layout, err := b.Poll()
	if err != nil {
		return newBackendErr("attach", err, false)
	}
	callback(layout)

	xevent.ScreenChangeNotifyFun(func(xu *xgbutil.XUtil, ev randr.ScreenChangeNotifyEvent) {
		layout, err := b.Poll()
		if err != nil {
			b.logger.Error("failed to poll backend state after screen-change notify", "error", err)
			return
		}
		b.callback(layout)
	}).Connect(b.conn.XUtil, b.conn.Root)

	return nil
}

// Poll re-queries RandR and builds the current ConcreteLayout, without
// going through the Attach callback. Used by the periodic reconciler.
func (b *X11Backend) Poll() (display.ConcreteLayout, error) {
	sr, err := b.conn.GetScreenResources()
	if err != nil {
		return display.ConcreteLayout{}, err
	}

	layout := display.NewConcreteLayout()
	layout.VirtualScreenMin = display.Pair{X: 1, Y: 1}
	layout.VirtualScreenMax = display.Pair{X: 16384, Y: 16384}

	var maxX, maxY int
	for _, crtc := range sr.Crtcs {
		for _, outputID := range crtc.Outputs {
			out, ok := outputByID(sr, outputID)
			if !ok {
				continue
			}
			mode, hasMode := sr.ModeByID(crtc.Mode)
			size := mode.Size
			enabled := crtc.Mode != 0 && hasMode

			co := display.ConcreteOutput{
				Enabled:       enabled,
				Transform:     x11.TransformFromRandR(crtc.Rotation),
				BaseSize:      size,
				Position:      crtc.Position,
				PreferredSize: out.PreferredMode.Size,
				EDID:          out.EDID,
				HasEDID:       out.HasEDID,
			}
			layout.Outputs[out.Name] = co
			if enabled {
				corner := co.Rect().Corner()
				if corner.X > maxX {
					maxX = corner.X
				}
				if corner.Y > maxY {
					maxY = corner.Y
				}
			}
		}
	}
	// Connected outputs with no CRTC still participate in the identity set
	// (spec §3's "what is plugged in", tracked by ToAbstract's Manual()
	// precondition); add them with Enabled=false. Disconnected outputs are
	// left out.
	for _, out := range sr.Outputs {
		if _, ok := layout.Outputs[out.Name]; ok || !out.Connected {
			continue
		}
		layout.Outputs[out.Name] = display.ConcreteOutput{
			Enabled:       false,
			PreferredSize: out.PreferredMode.Size,
			EDID:          out.EDID,
			HasEDID:       out.HasEDID,
		}
	}

	layout.VirtualScreenSize = display.Pair{X: maxX, Y: maxY}
	return layout, nil
}

// ApplyConcreteLayout pushes layout atomically per spec §6's
// apply_concrete_layout contract: grab, resize up, reconfigure CRTCs,
// resize down, ungrab on every exit path.
func (b *X11Backend) ApplyConcreteLayout(layout display.ConcreteLayout) error {
	if err := b.conn.GrabServer(); err != nil {
		return newBackendErr("apply_concrete_layout", err, true)
	}
	defer b.conn.UngrabServer()

	sr, err := b.conn.GetScreenResources()
	if err != nil {
		return newBackendErr("apply_concrete_layout", err, false)
	}

	before := currentScreenSize(sr)
	target := layout.VirtualScreenSize
	interim := display.Pair{X: maxInt(before.X, target.X), Y: maxInt(before.Y, target.Y)}

	if err := b.conn.SetScreenSize(interim); err != nil {
		return newBackendErr("apply_concrete_layout", err, false)
	}

	assigned := make(map[string]randr.Crtc, len(layout.Outputs))
	usedCrtcs := make(map[randr.Crtc]bool)

	names := make([]string, 0, len(layout.Outputs))
	for name := range layout.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	// Disable every CRTC currently driving an output before reassigning,
	// including CRTCs whose configuration is unchanged (spec §6(c)).
	for _, crtc := range sr.Crtcs {
		if len(crtc.Outputs) == 0 {
			continue
		}
		if err := b.conn.DisableCrtc(sr, crtc.ID); err != nil {
			b.restore(sr, before)
			return newBackendErr("apply_concrete_layout", err, false)
		}
	}

	for _, name := range names {
		co := layout.Outputs[name]
		if !co.Enabled {
			continue
		}
		out, ok := sr.OutputByName(name)
		if !ok {
			b.restore(sr, before)
			return newBackendErr("apply_concrete_layout", fmt.Errorf("unknown output %q", name), false)
		}
		mode, ok := out.FindMode(co.BaseSize)
		if !ok {
			b.restore(sr, before)
			return newBackendErr("apply_concrete_layout", fmt.Errorf("output %q has no mode matching %v", name, co.BaseSize), false)
		}

		crtcID := out.Crtc
		if crtcID == 0 || usedCrtcs[crtcID] {
			crtcID = firstFreeCrtc(sr, out, usedCrtcs)
		}
		if crtcID == 0 {
			b.restore(sr, before)
			return newBackendErr("apply_concrete_layout", fmt.Errorf("no free crtc for output %q", name), false)
		}

		rotation := x11.RandRTransform(co.Transform)
		if err := b.conn.SetCrtcConfig(sr, crtcID, co.Position, mode.ID, rotation, []randr.Output{out.ID}); err != nil {
			b.restore(sr, before)
			return newBackendErr("apply_concrete_layout", err, false)
		}
		assigned[name] = crtcID
		usedCrtcs[crtcID] = true
	}

	if err := b.conn.SetScreenSize(target); err != nil {
		b.restore(sr, before)
		return newBackendErr("apply_concrete_layout", err, false)
	}
	return nil
}

// restore is a best-effort rollback to the screen size observed before
// this apply attempt (spec §6(e)); CRTC-level rollback is not attempted
// since the next backend notification will re-drive the state machine
// with whatever state the partial push left behind.
func (b *X11Backend) restore(sr *x11.ScreenResources, before display.Pair) {
	if err := b.conn.SetScreenSize(before); err != nil {
		b.logger.Warn("failed to restore screen size after aborted apply", "error", err)
	}
}

// Dump formats the current RandR resource graph for diagnostics.
func (b *X11Backend) Dump() string {
	sr, err := b.conn.GetScreenResources()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "config_timestamp=%d\n", sr.ConfigTimestamp)
	for _, o := range sr.Outputs {
		fmt.Fprintf(&sb, "output %s connected=%v crtc=%d edid=%v modes=%d\n",
			o.Name, o.Connected, o.Crtc, o.HasEDID, len(o.Modes))
	}
	for _, c := range sr.Crtcs {
		fmt.Fprintf(&sb, "crtc %d pos=%v mode=%d rotation=%d outputs=%v\n",
			c.ID, c.Position, c.Mode, c.Rotation, c.Outputs)
	}
	return sb.String()
}

// Cleanup ungrabs defensively and closes the X connection.
func (b *X11Backend) Cleanup() {
	b.conn.UngrabServer()
	b.conn.Close()
}

// EventLoop blocks processing X11 events (screen-change notifications
// dispatch through the xevent callback registered in Attach). Returns only
// when the underlying connection is closed.
func (b *X11Backend) EventLoop() {
	b.conn.EventLoop()
}

func newBackendErr(op string, err error, fatal bool) error {
	kind := display.KindBackend
	if fatal {
		kind = display.KindBackendFatal
	}
	return &display.Error{Kind: kind, Op: op, Err: err}
}

func outputByID(sr *x11.ScreenResources, id randr.Output) (x11.Output, bool) {
	for _, o := range sr.Outputs {
		if o.ID == id {
			return o, true
		}
	}
	return x11.Output{}, false
}

func currentScreenSize(sr *x11.ScreenResources) display.Pair {
	var maxX, maxY int
	for _, c := range sr.Crtcs {
		mode, ok := sr.ModeByID(c.Mode)
		if c.Mode == 0 || !ok {
			continue
		}
		corner := c.Position.Add(x11.TransformFromRandR(c.Rotation).ApplyToSize(mode.Size))
		if corner.X > maxX {
			maxX = corner.X
		}
		if corner.Y > maxY {
			maxY = corner.Y
		}
	}
	return display.Pair{X: maxX, Y: maxY}
}

func firstFreeCrtc(sr *x11.ScreenResources, out x11.Output, used map[randr.Crtc]bool) randr.Crtc {
	for _, crtcID := range out.PossibleCrtcs {
		if !used[crtcID] {
			return crtcID
		}
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
