package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"

	"github.com/1broseidon/displayd/internal/display"
	"github.com/1broseidon/displayd/internal/runtimepath"
)

// Reconciler is the subset of internal/daemon.Reconciler the reconcile
// command needs; kept as an interface so ipc doesn't import
// daemon (daemon already imports ipc's sibling, the manager).
type Reconciler interface {
	ReconcileNow()
}

// Server handles control-socket requests from clients (SPEC_FULL §4.9).
type Server struct {
	socketPath   string
	listener     net.Listener
	manager      *display.Manager
	backend      display.Backend
	reconciler   Reconciler
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a control-socket server bound to the manager, backend,
// and reconciler it reports on. None of these commands ever call
// ApplyConcreteLayout directly, preserving the single-writer rule of
// spec §5.
func NewServer(manager *display.Manager, backend display.Backend, reconciler Reconciler, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve control socket path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		manager:    manager,
		backend:    backend,
		reconciler: reconciler,
		logger:     logger,
	}, nil
}

// Start begins listening for control-socket connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("control socket listening", "path", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			down := s.shuttingDown
			s.shutdownMu.Unlock()
			if down {
				return
			}
			s.logger.Error("control socket accept error", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Error("control socket read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Error("failed to send response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandStatus:
		return s.handleStatus()
	case CommandListDB:
		return s.handleListDB()
	case CommandForget:
		return s.handleForget(req.Payload)
	case CommandReconcile:
		return s.handleReconcile()
	case CommandDumpBackend:
		return s.handleDumpBackend()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleStatus() *Response {
	current := s.manager.Current()

	names := make([]string, 0, len(current.Outputs))
	for name := range current.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	outputs := make([]OutputStatus, 0, len(names))
	for _, name := range names {
		o := current.Outputs[name]
		reflect, rotation := o.Transform.Dump()
		edid := ""
		if o.HasEDID {
			edid = string(o.EDID)
		}
		outputs = append(outputs, OutputStatus{
			Name: name, Enabled: o.Enabled, EDID: edid,
			X: o.Position.X, Y: o.Position.Y,
			Width: o.Size().X, Height: o.Size().Y,
			Rotation: rotation, Reflect: reflect,
		})
	}

	data := StatusData{
		Outputs:           outputs,
		VirtualScreenSize: [2]int{current.VirtualScreenSize.X, current.VirtualScreenSize.Y},
		DatabaseDirty:     s.manager.Dirty(),
	}
	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleListDB() *Response {
	db := s.manager.Database()
	entries := make([]DBEntry, 0)
	for _, key := range db.Keys() {
		abstract, err := db.Get(key)
		if err != nil {
			continue
		}
		entries = append(entries, dbEntryFromAbstract(key, abstract))
	}
	resp, _ := NewOKResponse(ListDBData{Entries: entries})
	return resp
}

func dbEntryFromAbstract(key display.IdentitySet, abstract display.AbstractLayout) DBEntry {
	ids := make([]string, 0, len(abstract.Outputs))
	for id := range abstract.Outputs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	outputs := make([]LayoutEntry, 0, len(ids))
	for _, idStr := range ids {
		id := display.Identity(idStr)
		o := abstract.Outputs[id]
		reflect, rotation := o.Transform.Dump()

		nbIDs := make([]string, 0, len(o.Neighbours))
		for nb := range o.Neighbours {
			nbIDs = append(nbIDs, string(nb))
		}
		sort.Strings(nbIDs)

		relations := make([]RelationEntry, 0, len(nbIDs))
		for _, nbStr := range nbIDs {
			relations = append(relations, RelationEntry{
				Neighbour: nbStr,
				Direction: o.Neighbours[display.Identity(nbStr)].String(),
			})
		}

		outputs = append(outputs, LayoutEntry{
			Identity: idStr, Rotation: rotation, Reflect: reflect, Relations: relations,
		})
	}

	return DBEntry{IdentitySet: string(key), Outputs: outputs}
}

func (s *Server) handleForget(payload json.RawMessage) *Response {
	var req ForgetPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid forget payload: %v", err))
	}
	if req.IdentitySet == "" {
		return NewErrorResponse("identity_set is required")
	}
	if !s.manager.Database().Forget(display.IdentitySet(req.IdentitySet)) {
		return NewErrorResponse(fmt.Sprintf("no database entry for identity set %q", req.IdentitySet))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleReconcile() *Response {
	if s.reconciler != nil {
		s.reconciler.ReconcileNow()
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleDumpBackend() *Response {
	data := DumpBackendData{Dump: s.backend.Dump()}
	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the control socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
