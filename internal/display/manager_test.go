package display

import (
	"errors"
	"testing"
)

type fakeBackend struct {
	callback  func(ConcreteLayout)
	applied   []ConcreteLayout
	applyErr  error
	applyErrs []error // if set, consumed in order per ApplyConcreteLayout call
}

func (b *fakeBackend) Attach(callback func(ConcreteLayout)) error {
	b.callback = callback
	return nil
}

func (b *fakeBackend) ApplyConcreteLayout(layout ConcreteLayout) error {
	b.applied = append(b.applied, layout)
	if len(b.applyErrs) > 0 {
		err := b.applyErrs[0]
		b.applyErrs = b.applyErrs[1:]
		return err
	}
	return b.applyErr
}

func (b *fakeBackend) Dump() string { return "fake" }
func (b *fakeBackend) Cleanup()     {}

func twoOutputConcrete(posB Pair) ConcreteLayout {
	c := NewConcreteLayout()
	c.VirtualScreenMin = Pair{1, 1}
	c.VirtualScreenMax = Pair{16384, 16384}
	c.Outputs["eDP-1"] = ConcreteOutput{
		Enabled: true, Transform: IdentityTransform(),
		BaseSize: Pair{1920, 1080}, PreferredSize: Pair{1920, 1080},
		Position: Pair{0, 0}, EDID: "laptop", HasEDID: true,
	}
	c.Outputs["HDMI-1"] = ConcreteOutput{
		Enabled: true, Transform: IdentityTransform(),
		BaseSize: Pair{1920, 1080}, PreferredSize: Pair{1920, 1080},
		Position: posB, EDID: "external", HasEDID: true,
	}
	c.VirtualScreenSize = Pair{3840, 1080}
	return c
}

func TestManager_SameIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	backend.callback(m.Current())
	if len(backend.applied) != 0 {
		t.Fatal("expected no backend writes for an echoed identical layout")
	}
}

func TestManager_ManualInvalidEdidRecordsWithoutLearning(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	c := twoOutputConcrete(Pair{1920, 0})
	o := c.Outputs["HDMI-1"]
	o.HasEDID = false
	c.Outputs["HDMI-1"] = o

	backend.callback(c)
	if !m.Current().Equal(c) {
		t.Fatal("expected manual-invalid-edid layout recorded as current")
	}
	if len(backend.applied) != 0 {
		t.Fatal("expected no backend write for manual-invalid-edid")
	}
}

func TestManager_SetChangedFallsBackToDefaultWhenDatabaseEmpty(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	c := twoOutputConcrete(Pair{5000, 5000}) // not touching: would be "manual" if learned as-is
	backend.callback(c)

	if len(backend.applied) != 1 {
		t.Fatalf("expected exactly one backend write (default layout), got %d", len(backend.applied))
	}
	applied := backend.applied[0]
	a := applied.Outputs["eDP-1"]
	b := applied.Outputs["HDMI-1"]
	if a.Rect().overlaps(b.Rect()) {
		t.Fatal("default layout must not overlap outputs")
	}
}

func TestManager_SetChangedUsesDatabaseEntryWhenPresent(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	abstract := NewAbstractLayout([]Identity{"laptop", "external"})
	abstract.SetRelation("laptop", DirLeft, "external")
	db.table[abstract.Key()] = abstract

	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	c := twoOutputConcrete(Pair{5000, 5000})
	backend.callback(c)

	if len(backend.applied) != 1 {
		t.Fatalf("expected one backend write, got %d", len(backend.applied))
	}
	applied := backend.applied[0]
	laptop := applied.Outputs["eDP-1"]
	external := applied.Outputs["HDMI-1"]
	if external.Position.X < laptop.Position.X+laptop.Size().X {
		t.Fatal("expected external placed to the right of laptop per stored table entry")
	}
}

func TestManager_ManualClassificationRecordsWithoutApplying(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	// First drive an automatic set-changed so the identity set is known...
	initial := twoOutputConcrete(Pair{1920, 0})
	backend.callback(initial)
	backend.applied = nil

	// ...then deliver an overlapping (manual) layout with the same set.
	manual := twoOutputConcrete(Pair{0, 0})
	backend.callback(manual)

	if !m.Current().Equal(manual) {
		t.Fatal("expected manual layout recorded as current")
	}
	if len(backend.applied) != 0 {
		t.Fatal("expected no backend write for manual classification")
	}
}

func TestManager_LearnClassificationReMaterialisesAndRecords(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	initial := twoOutputConcrete(Pair{1920, 0})
	backend.callback(initial)
	backend.applied = nil

	moved := twoOutputConcrete(Pair{1920, 2000}) // still touching/left-right logically? no: below+right
	moved.Outputs["HDMI-1"] = ConcreteOutput{
		Enabled: true, Transform: IdentityTransform(),
		BaseSize: Pair{1920, 1080}, PreferredSize: Pair{1920, 1080},
		Position: Pair{0, 1080}, EDID: "external", HasEDID: true,
	}
	backend.callback(moved)

	if len(backend.applied) != 1 {
		t.Fatalf("expected learn to re-apply through the pipeline, got %d writes", len(backend.applied))
	}
	if _, err := db.Get(moved.IdentitySet()); err != nil {
		t.Fatal("expected learn to record the newly-learned arrangement in the database")
	}
}

func TestManager_SetChangedAbortsCascadeOnBackendError(t *testing.T) {
	backend := &fakeBackend{
		applyErrs: []error{&Error{Kind: KindBackend, Op: "apply_concrete_layout", Err: errors.New("no free crtc")}},
	}
	db := NewDatabase()
	abstract := NewAbstractLayout([]Identity{"laptop", "external"})
	abstract.SetRelation("laptop", DirLeft, "external")
	db.table[abstract.Key()] = abstract

	m := NewManager(db, backend, ManagerConfig{})
	_ = m.Start()

	c := twoOutputConcrete(Pair{5000, 5000})
	backend.callback(c)

	if len(backend.applied) != 1 {
		t.Fatalf("expected exactly one apply attempt (table entry), got %d; cascade should abort on BackendError, not fall through to statistical/default", len(backend.applied))
	}
	if m.Current().Equal(c) {
		t.Fatal("expected current layout left unchanged after an aborted apply")
	}
	if m.Dirty() {
		t.Fatal("expected no database write after a failed apply")
	}
}

func TestManager_ReentrancyLimitTripsFatal(t *testing.T) {
	backend := &fakeBackend{}
	db := NewDatabase()
	m := NewManager(db, backend, ManagerConfig{ReentrancyLimit: 3})
	_ = m.Start()

	var fatalErr error
	m.OnFatal = func(err error) { fatalErr = err }

	for i := 0; i < 5; i++ {
		c := twoOutputConcrete(Pair{5000 + i*7, 5000})
		backend.callback(c)
	}
	if fatalErr == nil {
		t.Fatal("expected fatal error once re-entrancy limit exceeded")
	}
}
