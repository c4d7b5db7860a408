package display

import "testing"

func TestDatabase_GetNotFound(t *testing.T) {
	db := NewDatabase()
	if _, err := db.Get(NewIdentitySet([]Identity{"A", "B"})); err == nil {
		t.Fatal("expected not-found error on empty database")
	}
}

func TestDatabase_RecordSuccessAndGet(t *testing.T) {
	db := NewDatabase()
	a := NewAbstractLayout([]Identity{"laptop", "external"})
	a.SetRelation("laptop", DirLeft, "external")

	db.RecordSuccess(a, map[Identity]string{"laptop": "eDP-1", "external": "HDMI-1"})

	got, err := db.Get(a.Key())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Outputs["laptop"].Rel("external") != DirLeft {
		t.Fatalf("stored relation = %v, want left", got.Outputs["laptop"].Rel("external"))
	}
}

func TestDatabase_DefaultLayout(t *testing.T) {
	db := NewDatabase()
	got := db.DefaultLayout([]Identity{"A", "B"})
	for _, o := range got.Outputs {
		if len(o.Neighbours) != 0 {
			t.Fatal("default layout must have no relations")
		}
		if !o.Transform.Equal(IdentityTransform()) {
			t.Fatal("default layout must use identity transforms")
		}
	}
}

func TestDatabase_StatisticalLayoutPicksMostFrequent(t *testing.T) {
	db := NewDatabase()
	left := NewAbstractLayout([]Identity{"A", "B"})
	left.SetRelation("A", DirLeft, "B")
	right := NewAbstractLayout([]Identity{"A", "B"})
	right.SetRelation("A", DirRight, "B")

	names := map[Identity]string{"A": "eDP-1", "B": "HDMI-1"}
	db.RecordSuccess(left, names)
	db.RecordSuccess(left, names)
	db.RecordSuccess(right, names)

	c := NewConcreteLayout()
	c.Outputs["eDP-1"] = ConcreteOutput{Enabled: true, EDID: "A", HasEDID: true}
	c.Outputs["HDMI-1"] = ConcreteOutput{Enabled: true, EDID: "B", HasEDID: true}

	stat := db.StatisticalLayout(c, []Identity{"A", "B"})
	if got := stat.Outputs["A"].Rel("B"); got != DirLeft {
		t.Fatalf("statistical relation = %v, want left (2 votes vs 1)", got)
	}
}

func TestDatabase_StatisticalLayoutSkipsZeroCounters(t *testing.T) {
	db := NewDatabase()
	c := NewConcreteLayout()
	c.Outputs["eDP-1"] = ConcreteOutput{Enabled: true, EDID: "A", HasEDID: true}
	c.Outputs["HDMI-1"] = ConcreteOutput{Enabled: true, EDID: "B", HasEDID: true}

	stat := db.StatisticalLayout(c, []Identity{"A", "B"})
	if got := stat.Outputs["A"].Rel("B"); got != DirNone {
		t.Fatalf("expected no relation with zero history, got %v", got)
	}
}

func TestDatabase_StoreLoadRoundTrip(t *testing.T) {
	db := NewDatabase()
	a := NewAbstractLayout([]Identity{"A", "B"})
	a.SetRelation("A", DirAbove, "B")
	names := map[Identity]string{"A": "eDP-1", "B": "HDMI-1"}
	db.RecordSuccess(a, names)
	db.RecordSuccess(a, names)

	blob, err := db.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, err := LoadDatabase(blob)
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}

	got, err := loaded.Get(a.Key())
	if err != nil {
		t.Fatalf("Get after load: %v", err)
	}
	if got.Outputs["A"].Rel("B") != DirAbove {
		t.Fatalf("loaded relation = %v, want above", got.Outputs["A"].Rel("B"))
	}
	if loaded.counters[counterKey{NameA: "eDP-1", Dir: DirAbove, NameB: "HDMI-1"}] != 2 {
		t.Fatalf("loaded counter = %d, want 2", loaded.counters[counterKey{NameA: "eDP-1", Dir: DirAbove, NameB: "HDMI-1"}])
	}
}

func TestLoadDatabase_RejectsWrongVersion(t *testing.T) {
	db := NewDatabase()
	blob, err := db.Store()
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	blob[11] = 3 // corrupt the low byte of the big-endian version int64
	if _, err := LoadDatabase(blob); err == nil {
		t.Fatal("expected DatabaseLoadError on version mismatch")
	}
}

func TestLoadDatabase_RejectsTruncatedInput(t *testing.T) {
	if _, err := LoadDatabase([]byte{0, 0, 0}); err == nil {
		t.Fatal("expected error on truncated input")
	}
}
