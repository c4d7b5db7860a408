package display

import "testing"

func twoMonitorConcrete() ConcreteLayout {
	c := NewConcreteLayout()
	c.VirtualScreenMin = Pair{1, 1}
	c.VirtualScreenMax = Pair{16384, 16384}
	c.Outputs["eDP-1"] = ConcreteOutput{
		Enabled: true, Transform: IdentityTransform(),
		BaseSize: Pair{1920, 1080}, PreferredSize: Pair{1920, 1080},
		Position: Pair{0, 0}, EDID: "laptop-panel", HasEDID: true,
	}
	c.Outputs["HDMI-1"] = ConcreteOutput{
		Enabled: true, Transform: IdentityTransform(),
		BaseSize: Pair{1920, 1080}, PreferredSize: Pair{1920, 1080},
		Position: Pair{1920, 0}, EDID: "external-monitor", HasEDID: true,
	}
	c.VirtualScreenSize = Pair{3840, 1080}
	return c
}

func TestConcreteLayout_ManualFalseForCleanAutomaticLayout(t *testing.T) {
	c := twoMonitorConcrete()
	if c.Manual() {
		t.Fatal("expected automatic layout")
	}
}

func TestConcreteLayout_ManualTrueWhenDisabled(t *testing.T) {
	c := twoMonitorConcrete()
	o := c.Outputs["HDMI-1"]
	o.Enabled = false
	c.Outputs["HDMI-1"] = o
	if !c.Manual() {
		t.Fatal("expected manual due to disabled output")
	}
}

func TestConcreteLayout_ManualTrueWhenOverlapping(t *testing.T) {
	c := twoMonitorConcrete()
	o := c.Outputs["HDMI-1"]
	o.Position = Pair{0, 0} // now overlaps eDP-1 entirely (mirroring)
	c.Outputs["HDMI-1"] = o
	if !c.Manual() {
		t.Fatal("expected manual due to overlap/mirroring")
	}
}

func TestConcreteLayout_ManualTrueWhenNonPreferredMode(t *testing.T) {
	c := twoMonitorConcrete()
	o := c.Outputs["HDMI-1"]
	o.BaseSize = Pair{1280, 720}
	c.Outputs["HDMI-1"] = o
	if !c.Manual() {
		t.Fatal("expected manual due to non-preferred mode")
	}
}

func TestConcreteLayout_ManualTrueWhenMissingEdid(t *testing.T) {
	c := twoMonitorConcrete()
	o := c.Outputs["HDMI-1"]
	o.HasEDID = false
	c.Outputs["HDMI-1"] = o
	if !c.Manual() {
		t.Fatal("expected manual due to missing edid")
	}
}

func TestConcreteLayout_ToAbstractRoundTrip(t *testing.T) {
	c := twoMonitorConcrete()
	abstract, err := c.ToAbstract()
	if err != nil {
		t.Fatalf("ToAbstract: %v", err)
	}
	if got := abstract.Outputs["laptop-panel"].Rel("external-monitor"); got != DirLeft {
		t.Fatalf("laptop->external = %v, want left", got)
	}
	if got := abstract.Outputs["external-monitor"].Rel("laptop-panel"); got != DirRight {
		t.Fatalf("external->laptop = %v, want right", got)
	}

	info := map[Identity]OutputInfo{
		"laptop-panel":     {Name: "eDP-1", PreferredSize: Pair{1920, 1080}},
		"external-monitor": {Name: "HDMI-1", PreferredSize: Pair{1920, 1080}},
	}
	rebuilt, err := FromAbstract(abstract, c.VirtualScreenMin, c.VirtualScreenMax, info)
	if err != nil {
		t.Fatalf("FromAbstract: %v", err)
	}
	for name, out := range c.Outputs {
		ro, ok := rebuilt.Outputs[name]
		if !ok {
			t.Fatalf("missing output %s in rebuilt layout", name)
		}
		if ro.Position != out.Position {
			t.Fatalf("output %s: position = %v, want %v", name, ro.Position, out.Position)
		}
		if !ro.Transform.Equal(out.Transform) {
			t.Fatalf("output %s: transform = %v, want %v", name, ro.Transform, out.Transform)
		}
	}
}

func TestConcreteLayout_ToAbstractFailsOnManual(t *testing.T) {
	c := twoMonitorConcrete()
	o := c.Outputs["HDMI-1"]
	o.Enabled = false
	c.Outputs["HDMI-1"] = o
	if _, err := c.ToAbstract(); err == nil {
		t.Fatal("expected error abstracting a manual layout")
	}
}

func TestConcreteLayout_EqualDetectsSame(t *testing.T) {
	a := twoMonitorConcrete()
	b := twoMonitorConcrete()
	if !a.Equal(b) {
		t.Fatal("expected equal layouts to compare equal")
	}
	o := b.Outputs["HDMI-1"]
	o.Position = Pair{2000, 0}
	b.Outputs["HDMI-1"] = o
	if a.Equal(b) {
		t.Fatal("expected differing layouts to compare unequal")
	}
}

func TestConcreteLayout_EdidValid(t *testing.T) {
	c := twoMonitorConcrete()
	if !c.EdidValid() {
		t.Fatal("expected edid_valid true")
	}
	o := c.Outputs["HDMI-1"]
	o.HasEDID = false
	c.Outputs["HDMI-1"] = o
	if c.EdidValid() {
		t.Fatal("expected edid_valid false")
	}
}
