// Package mcp exposes displayd's control socket as read-only Model Context
// Protocol tools (SPEC_FULL §4.10), so an agent can inspect the current
// layout and learned database without shelling out to a CLI. None of these
// tools ever call ApplyConcreteLayout; they proxy to the same control
// socket internal/ipc's CLI client uses.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/displayd/internal/ipc"
)

const (
	ServerName    = "displayd"
	ServerVersion = "0.1.0"
)

// Server is the MCP server for displayd introspection.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates a new MCP server backed by the control socket client.
func NewServer() *Server {
	s := &Server{
		client: ipc.NewClient(),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "display_status",
		Description: "Get the daemon's current display layout: every output's position, size, rotation, and whether the learned-layout database has unpersisted changes.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "display_list_db",
		Description: "List every monitor-set the daemon has learned a layout for, keyed by identity set, with each output's stored rotation and relations.",
	}, s.handleListDB)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "display_dump_backend",
		Description: "Dump the raw RandR resource graph (outputs, crtcs, modes) the daemon currently observes, for diagnosing hardware-detection issues.",
	}, s.handleDumpBackend)
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	data, err := s.client.Status()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to query daemon status: %w", err)
	}

	outputs := make([]OutputStatus, 0, len(data.Outputs))
	for _, o := range data.Outputs {
		outputs = append(outputs, OutputStatus{
			Name: o.Name, Enabled: o.Enabled, EDID: o.EDID,
			X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
			Rotation: o.Rotation, Reflect: o.Reflect,
		})
	}
	return nil, StatusOutput{
		Outputs:           outputs,
		VirtualScreenSize: data.VirtualScreenSize,
		DatabaseDirty:     data.DatabaseDirty,
	}, nil
}

func (s *Server) handleListDB(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListDBInput) (*mcpsdk.CallToolResult, ListDBOutput, error) {
	data, err := s.client.ListDB()
	if err != nil {
		return nil, ListDBOutput{}, fmt.Errorf("failed to list learned layouts: %w", err)
	}

	entries := make([]DBEntry, 0, len(data.Entries))
	for _, e := range data.Entries {
		outputs := make([]LayoutEntry, 0, len(e.Outputs))
		for _, o := range e.Outputs {
			relations := make([]RelationEntry, 0, len(o.Relations))
			for _, r := range o.Relations {
				relations = append(relations, RelationEntry{Neighbour: r.Neighbour, Direction: r.Direction})
			}
			outputs = append(outputs, LayoutEntry{
				Identity: o.Identity, Rotation: o.Rotation, Reflect: o.Reflect, Relations: relations,
			})
		}
		entries = append(entries, DBEntry{IdentitySet: e.IdentitySet, Outputs: outputs})
	}
	return nil, ListDBOutput{Entries: entries}, nil
}

func (s *Server) handleDumpBackend(_ context.Context, _ *mcpsdk.CallToolRequest, _ DumpBackendInput) (*mcpsdk.CallToolResult, DumpBackendOutput, error) {
	dump, err := s.client.DumpBackend()
	if err != nil {
		return nil, DumpBackendOutput{}, fmt.Errorf("failed to dump backend state: %w", err)
	}
	return nil, DumpBackendOutput{Dump: dump}, nil
}
