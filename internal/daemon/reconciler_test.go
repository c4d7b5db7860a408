package daemon

import (
	"errors"
	"testing"

	"github.com/1broseidon/displayd/internal/display"
)

type fakePoller struct {
	layout display.ConcreteLayout
	err    error
	calls  int
}

func (p *fakePoller) Poll() (display.ConcreteLayout, error) {
	p.calls++
	return p.layout, p.err
}

type noopBackend struct{}

func (noopBackend) Attach(callback func(display.ConcreteLayout)) error { return nil }
func (noopBackend) ApplyConcreteLayout(display.ConcreteLayout) error   { return nil }
func (noopBackend) Dump() string                                      { return "" }
func (noopBackend) Cleanup()                                          {}

func TestReconciler_ReconcileNowFeedsManager(t *testing.T) {
	db := display.NewDatabase()
	manager := display.NewManager(db, noopBackend{}, display.ManagerConfig{})
	if err := manager.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	layout := display.NewConcreteLayout()
	layout.Outputs["eDP-1"] = display.ConcreteOutput{
		Enabled: true, Transform: display.IdentityTransform(),
		BaseSize: display.Pair{X: 1920, Y: 1080}, Position: display.Pair{X: 0, Y: 0},
	}
	poller := &fakePoller{layout: layout}

	r := NewReconciler(ReconcilerConfig{}, poller, manager)
	r.ReconcileNow()

	if poller.calls != 1 {
		t.Fatalf("expected exactly one poll, got %d", poller.calls)
	}
	if !manager.Current().Equal(layout) {
		t.Fatal("expected reconciler to feed the polled layout to the manager")
	}
}

func TestReconciler_ReconcileNowSurvivesPollError(t *testing.T) {
	db := display.NewDatabase()
	manager := display.NewManager(db, noopBackend{}, display.ManagerConfig{})
	_ = manager.Start()

	poller := &fakePoller{err: errors.New("randr unavailable")}
	r := NewReconciler(ReconcilerConfig{}, poller, manager)

	r.ReconcileNow() // must not panic
	if poller.calls != 1 {
		t.Fatalf("expected exactly one poll attempt, got %d", poller.calls)
	}
}
