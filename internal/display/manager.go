package display

import (
	"errors"
	"log/slog"
)

// Classification is the outcome of classifying a backend notification
// against the manager's current state (spec §4.5).
type Classification int

const (
	ClassSame Classification = iota
	ClassManualInvalidEDID
	ClassSetChanged
	ClassManual
	ClassLearn
)

func (c Classification) String() string {
	switch c {
	case ClassSame:
		return "same"
	case ClassManualInvalidEDID:
		return "manual-invalid-edid"
	case ClassSetChanged:
		return "set-changed"
	case ClassManual:
		return "manual"
	case ClassLearn:
		return "learn"
	default:
		return "unknown"
	}
}

// ManagerConfig configures the re-entrancy guard of spec §5.
type ManagerConfig struct {
	ReentrancyLimit int
	Logger          *slog.Logger
}

// Manager is the single-threaded state machine of spec §4.5/§5. It owns
// the database exclusively and is the only caller of the backend's
// ApplyConcreteLayout.
type Manager struct {
	db      *Database
	backend Backend
	logger  *slog.Logger

	reentrancyLimit int
	reentrancy      int

	current    ConcreteLayout
	dirty      bool
	fatalFired bool

	// OnFatal is invoked (at most once) when a LayoutFatalError,
	// BackendFatalError, or re-entrancy-exceeded fires. Spec §5/§7: these
	// propagate to the top of the event loop and terminate the daemon
	// after logging and persisting the database.
	OnFatal func(error)
}

// NewManager builds a manager over db and backend. cfg.ReentrancyLimit
// defaults to 100 (spec §5) when <= 0.
func NewManager(db *Database, backend Backend, cfg ManagerConfig) *Manager {
	limit := cfg.ReentrancyLimit
	if limit <= 0 {
		limit = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		db:              db,
		backend:         backend,
		logger:          logger,
		reentrancyLimit: limit,
		current:         NewConcreteLayout(),
	}
}

// Start attaches the manager to the backend. The backend invokes
// onBackendChanged synchronously with the current state before Start
// returns (spec §6).
func (m *Manager) Start() error {
	return m.backend.Attach(m.onBackendChanged)
}

// Current returns the manager's last-known concrete layout, for the
// control socket and MCP introspection tools (read-only; spec SPEC_FULL
// §4.9/§4.10).
func (m *Manager) Current() ConcreteLayout {
	return m.current
}

// Dirty reports whether the manager has recorded a layout into the
// database since it was created. It is never cleared, and changes made
// through Database().Forget do not set it.
func (m *Manager) Dirty() bool {
	return m.dirty
}

// Database returns the manager's database, for the control socket's
// list-db and forget commands.
func (m *Manager) Database() *Database {
	return m.db
}

// Notify feeds a freshly-observed concrete layout through the same
// classification path backend notifications use. The periodic reconciler
// (internal/daemon) calls this on its own schedule as a failsafe against
// coalesced or dropped backend notifications (SPEC_FULL §4.7); it is
// idempotent by construction since an unchanged layout classifies as Same.
func (m *Manager) Notify(newConcrete ConcreteLayout) {
	m.onBackendChanged(newConcrete)
}

func (m *Manager) onBackendChanged(newConcrete ConcreteLayout) {
	class := m.classify(newConcrete)
	m.logger.Info("backend notification classified", "class", class.String())

	if class == ClassSame {
		m.reentrancy = 0
		return
	}
	m.reentrancy++
	if m.reentrancy > m.reentrancyLimit {
		err := newErr(KindLayoutFatal, "on_backend_changed", ErrReentrancyExceeded)
		m.logger.Error("re-entrancy limit exceeded", "limit", m.reentrancyLimit, "error", err)
		m.fatal(err)
		return
	}

	switch class {
	case ClassManualInvalidEDID:
		m.current = newConcrete
	case ClassManual:
		m.current = newConcrete
	case ClassSetChanged:
		m.handleSetChanged(newConcrete)
	case ClassLearn:
		m.handleLearn(newConcrete)
	}
}

// classify implements spec §4.5's five-step classification in order.
func (m *Manager) classify(newConcrete ConcreteLayout) Classification {
	if newConcrete.Equal(m.current) {
		return ClassSame
	}
	if !newConcrete.EdidValid() {
		return ClassManualInvalidEDID
	}
	if newConcrete.IdentitySet() != m.current.IdentitySet() {
		return ClassSetChanged
	}
	if newConcrete.Manual() {
		return ClassManual
	}
	return ClassLearn
}

func (m *Manager) handleSetChanged(newConcrete ConcreteLayout) {
	ids := newConcrete.IdentitySet().Members()
	info := outputInfo(newConcrete)

	abstract, err := m.db.Get(newConcrete.IdentitySet())
	if err == nil {
		if ok, abort := m.tryApply(abstract, newConcrete, info); ok || abort {
			return
		}
	}

	abstract = m.db.StatisticalLayout(newConcrete, ids)
	if len(abstract.Outputs) > 0 {
		if ok, abort := m.tryApply(abstract, newConcrete, info); ok || abort {
			return
		}
	}

	abstract = m.db.DefaultLayout(ids)
	if err := m.applyAbstract(abstract, newConcrete, info); err != nil {
		m.logger.Warn("default layout application failed; nothing left to try", "error", err)
	}
}

func (m *Manager) handleLearn(newConcrete ConcreteLayout) {
	abstract, err := newConcrete.ToAbstract()
	if err != nil {
		// classify already established !Manual(), so this indicates the
		// precondition was violated between the two checks; spec §4.3
		// treats that as fatal.
		var de *Error
		if errors.As(err, &de) && de.Fatal() {
			m.logger.Error("learn: precondition violated abstracting a supposedly-automatic layout", "error", err)
			m.fatal(err)
			return
		}
		m.logger.Warn("learn: failed to abstract manual tweak", "error", err)
		m.current = newConcrete
		return
	}
	info := outputInfo(newConcrete)
	if err := m.applyAbstract(abstract, newConcrete, info); err != nil {
		m.logger.Warn("learn: re-materialisation failed, recording as-is", "error", err)
		m.current = newConcrete
	}
}

// tryApply applies abstract and reports (ok, abort). ok is true on success.
// abort is true when the failure was a BackendError: spec §4.5/§7 require
// the whole table -> statistical -> default cascade to stop immediately in
// that case, since the backend state is no longer trustworthy and trying a
// different abstract layout against it is pointless. A fatal error also
// aborts (it has already been handed to OnFatal). A LayoutError instead
// returns (false, false) so the caller tries the next fallback.
func (m *Manager) tryApply(abstract AbstractLayout, context ConcreteLayout, info map[Identity]OutputInfo) (ok bool, abort bool) {
	err := m.applyAbstract(abstract, context, info)
	if err == nil {
		return true, false
	}

	var de *Error
	if errors.As(err, &de) && (de.Kind == KindBackend || de.Fatal()) {
		m.logger.Warn("backend rejected layout, aborting cascade", "error", err)
		return false, true
	}

	m.logger.Info("cascade step failed, trying next fallback", "error", err)
	return false, false
}

// applyAbstract is the apply_abstract pipeline of spec §4.5: materialise,
// push to backend, and on success adopt the result and record it.
func (m *Manager) applyAbstract(abstract AbstractLayout, context ConcreteLayout, info map[Identity]OutputInfo) error {
	materialised, err := FromAbstract(abstract, context.VirtualScreenMin, context.VirtualScreenMax, info)
	if err != nil {
		return err
	}

	if err := m.backend.ApplyConcreteLayout(materialised); err != nil {
		var de *Error
		if errors.As(err, &de) && de.Fatal() {
			m.logger.Error("backend reported a fatal error", "error", err)
			m.fatal(err)
		}
		return err
	}

	m.current = materialised
	nameOf := make(map[Identity]string, len(info))
	for id, oi := range info {
		nameOf[id] = oi.Name
	}
	m.db.RecordSuccess(abstract, nameOf)
	m.dirty = true
	return nil
}

func (m *Manager) fatal(err error) {
	if m.OnFatal != nil && !m.fatalFired {
		m.fatalFired = true
		m.OnFatal(err)
	}
}

// outputInfo derives the identity->(name,preferred size) map FromAbstract
// needs from a concrete layout's currently-attached outputs.
func outputInfo(c ConcreteLayout) map[Identity]OutputInfo {
	info := make(map[Identity]OutputInfo, len(c.Outputs))
	for name, o := range c.Outputs {
		if !o.HasEDID {
			continue
		}
		info[o.EDID] = OutputInfo{Name: name, PreferredSize: o.PreferredSize}
	}
	return info
}
