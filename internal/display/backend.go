package display

// Backend is the display-backend abstraction the manager drives (spec §6).
// Implementations live under internal/platform; this package only depends
// on the contract.
type Backend interface {
	// Attach registers the manager's callback. The backend MUST invoke it
	// once synchronously, with the current state, before returning, and
	// once per observed hardware change thereafter.
	Attach(callback func(ConcreteLayout)) error

	// ApplyConcreteLayout atomically pushes layout. Errors are always a
	// *Error with KindBackend or KindBackendFatal.
	ApplyConcreteLayout(layout ConcreteLayout) error

	// Dump returns a diagnostic snapshot for the control socket and MCP
	// tool.
	Dump() string

	// Cleanup releases the backend connection. Called once at shutdown.
	Cleanup()
}
