package x11

import (
	"fmt"
	"sort"

	"github.com/1broseidon/displayd/internal/display"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// Mode is one output's advertised mode (spec's "possible modes" per output).
type Mode struct {
	ID     randr.Mode
	Size   display.Pair
	Name   string
}

// Output is the RandR state for one connector: its current CRTC binding
// (0 if disabled), advertised modes, preferred mode, monitor identity, and
// which CRTCs it could be driven by.
type Output struct {
	ID              randr.Output
	Name            string
	Connected       bool
	Crtc            randr.Crtc
	Modes           []Mode
	PreferredMode   Mode
	PossibleCrtcs   []randr.Crtc
	EDID            display.Identity
	HasEDID         bool
}

// CrtcInfo is the RandR state for one controller.
type CrtcInfo struct {
	ID              randr.Crtc
	Position        display.Pair
	Mode            randr.Mode
	Rotation        uint16
	Outputs         []randr.Output
	PossibleOutputs []randr.Output
}

// ScreenResources is a snapshot of randr.GetScreenResources plus the
// per-output details the backend needs, fetched and cached together under
// a single config timestamp (RandR requires every mutating call to quote
// the timestamp it last observed).
type ScreenResources struct {
	ConfigTimestamp xproto.Timestamp
	Crtcs           []CrtcInfo
	Outputs         []Output
	modesByID       map[randr.Mode]Mode
}

var edidAtomName = "EDID"

// GetScreenResources queries RandR for the full screen-resource graph:
// every CRTC, every output (with modes, preferred mode, and EDID), keyed
// by the current config timestamp.
func (c *Connection) GetScreenResources() (*ScreenResources, error) {
	res, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("get screen resources: %w", err)
	}

	modesByID := make(map[randr.Mode]Mode, len(res.Modes))
	nameCursor := 0
	for _, m := range res.Modes {
		name := ""
		end := nameCursor + int(m.NameLen)
		if end <= len(res.Names) {
			name = string(res.Names[nameCursor:end])
		}
		nameCursor = end
		modesByID[randr.Mode(m.Id)] = Mode{
			ID:   randr.Mode(m.Id),
			Size: display.Pair{X: int(m.Width), Y: int(m.Height)},
			Name: name,
		}
	}

	sr := &ScreenResources{
		ConfigTimestamp: res.ConfigTimestamp,
		modesByID:       modesByID,
	}

	for _, crtcID := range res.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtcID, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		sr.Crtcs = append(sr.Crtcs, CrtcInfo{
			ID:              crtcID,
			Position:        display.Pair{X: int(info.X), Y: int(info.Y)},
			Mode:            info.Mode,
			Rotation:        info.Rotation,
			Outputs:         info.Outputs,
			PossibleOutputs: info.PossibleOutputs,
		})
	}

	for _, outputID := range res.Outputs {
		info, err := randr.GetOutputInfo(c.XUtil.Conn(), outputID, res.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		out := Output{
			ID:            outputID,
			Name:          string(info.Name),
			Connected:     info.Connection == randr.ConnectionConnected,
			Crtc:          info.Crtc,
			PossibleCrtcs: info.Crtcs,
		}
		for i, modeID := range info.Modes {
			mode, ok := modesByID[modeID]
			if !ok {
				continue
			}
			out.Modes = append(out.Modes, mode)
			if uint16(i) < info.NumPreferred {
				out.PreferredMode = mode
			}
		}
		if id, ok := c.readEDIDIdentity(outputID); ok {
			out.EDID = id
			out.HasEDID = true
		}
		sr.Outputs = append(sr.Outputs, out)
	}

	sort.Slice(sr.Outputs, func(i, j int) bool { return sr.Outputs[i].Name < sr.Outputs[j].Name })
	return sr, nil
}

// readEDIDIdentity reads the output's EDID property and extracts the
// stable monitor identity: the first 16 bytes following the 8-byte EDID
// magic (spec SPEC_FULL §3 supplementary note).
func (c *Connection) readEDIDIdentity(output randr.Output) (display.Identity, bool) {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), true, uint16(len(edidAtomName)), edidAtomName).Reply()
	if err != nil || atomReply.Atom == 0 {
		return "", false
	}
	prop, err := randr.GetOutputProperty(
		c.XUtil.Conn(), output, atomReply.Atom, xproto.AtomInteger,
		0, 128, false, false,
	).Reply()
	if err != nil || prop == nil || len(prop.Data) < 16 {
		return "", false
	}
	return ParseEDIDIdentity(prop.Data)
}

var edidMagic = [8]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// ParseEDIDIdentity extracts the stable identity from a raw EDID blob: the
// 16 bytes immediately following the 8-byte EDID header magic.
func ParseEDIDIdentity(edid []byte) (display.Identity, bool) {
	if len(edid) < 24 {
		return "", false
	}
	for i := 0; i < 8; i++ {
		if edid[i] != edidMagic[i] {
			return "", false
		}
	}
	return display.Identity(edid[8:24]), true
}

// SetCrtcConfig pushes a new configuration to crtcID: position, mode,
// rotation bitmask, and the set of outputs it should drive. An empty mode
// (0) disables the CRTC.
func (c *Connection) SetCrtcConfig(sr *ScreenResources, crtcID randr.Crtc, pos display.Pair, mode randr.Mode, rotation uint16, outputs []randr.Output) error {
	reply, err := randr.SetCrtcConfig(
		c.XUtil.Conn(), crtcID, 0, sr.ConfigTimestamp,
		int16(pos.X), int16(pos.Y), mode, rotation, outputs,
	).Reply()
	if err != nil {
		return fmt.Errorf("set crtc config: %w", err)
	}
	if reply.Status != randr.SetConfigSuccess {
		return fmt.Errorf("set crtc config: status %d", reply.Status)
	}
	return nil
}

// DisableCrtc releases the CRTC's outputs; equivalent to SetCrtcConfig with
// a null mode.
func (c *Connection) DisableCrtc(sr *ScreenResources, crtcID randr.Crtc) error {
	return c.SetCrtcConfig(sr, crtcID, display.Pair{}, 0, randr.RotationRotate0, nil)
}

// SetScreenSize resizes the virtual screen. pixelSize is the new width and
// height in pixels; physical millimetre dimensions are derived at a
// nominal 96 DPI since RandR requires *some* value and no backend client
// depends on it being exact.
func (c *Connection) SetScreenSize(pixelSize display.Pair) error {
	const dpi = 96.0
	mmWidth := uint32(float64(pixelSize.X) / dpi * 25.4)
	mmHeight := uint32(float64(pixelSize.Y) / dpi * 25.4)
	return randr.SetScreenSizeChecked(
		c.XUtil.Conn(), c.Root,
		uint16(pixelSize.X), uint16(pixelSize.Y),
		mmWidth, mmHeight,
	).Check()
}

// FindMode returns the output's mode matching size exactly, if any.
func (o Output) FindMode(size display.Pair) (Mode, bool) {
	for _, m := range o.Modes {
		if m.Size == size {
			return m, true
		}
	}
	return Mode{}, false
}

// CrtcByID looks up a CrtcInfo within this snapshot.
func (sr *ScreenResources) CrtcByID(id randr.Crtc) (CrtcInfo, bool) {
	for _, c := range sr.Crtcs {
		if c.ID == id {
			return c, true
		}
	}
	return CrtcInfo{}, false
}

// ModeByID looks up a Mode within this snapshot.
func (sr *ScreenResources) ModeByID(id randr.Mode) (Mode, bool) {
	m, ok := sr.modesByID[id]
	return m, ok
}

// OutputByName looks up an Output within this snapshot.
func (sr *ScreenResources) OutputByName(name string) (Output, bool) {
	for _, o := range sr.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// RandRTransform converts a display.Transform into RandR's rotation |
// reflect bitmask (SPEC_FULL §3 supplementary note).
func RandRTransform(t display.Transform) uint16 {
	var bits uint16
	switch t.Rotation {
	case 0:
		bits = randr.RotationRotate0
	case 90:
		bits = randr.RotationRotate90
	case 180:
		bits = randr.RotationRotate180
	case 270:
		bits = randr.RotationRotate270
	default:
		bits = randr.RotationRotate0
	}
	if t.Reflect {
		bits |= randr.RotationReflectX
	}
	return bits
}

// TransformFromRandR converts a RandR rotation|reflect bitmask back to the
// core's (reflect_x, rotation) normal form.
func TransformFromRandR(bits uint16) display.Transform {
	rotation := 0
	switch {
	case bits&randr.RotationRotate90 != 0:
		rotation = 90
	case bits&randr.RotationRotate180 != 0:
		rotation = 180
	case bits&randr.RotationRotate270 != 0:
		rotation = 270
	}
	reflectX := bits&randr.RotationReflectX != 0
	t := display.FromParts(reflectX, rotation)
	if bits&randr.RotationReflectY != 0 {
		t = t.ReflectY()
	}
	return t
}
