// Package mcp exposes the gate as MCP tools so an agent can ask before acting.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/model"
)

// Server wraps the MCP SDK server around a gate.
type Server struct {
	mcpServer *mcpsdk.Server
	eval      gate.Evaluator
	sessionID string
}

// New creates an MCP server backed by eval. Every tool call is evaluated
// and audited by eval under one session id for the lifetime of the server.
func New(eval gate.Evaluator, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		eval:      eval,
		sessionID: model.NewSessionID("mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "hookgate",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio. Blocks until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// SessionID is the id stamped on audit records written for this server.
func (s *Server) SessionID() string {
	return s.sessionID
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_check_command",
		Description: "Check whether a shell command would be allowed. Returns the verdict and, when blocked, the matching rule.",
	}, s.handleCheckCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_check_file",
		Description: "Check whether reading, writing or editing a file would be allowed.",
	}, s.handleCheckFile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_validate_new_file",
		Description: "Verify that a file was recently created or modified in a directory before claiming the work is done.",
	}, s.handleValidateNewFile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_validate_file_contains",
		Description: "Verify that the newest matching file in a directory contains every required section.",
	}, s.handleValidateFileContains)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hookgate_validate_setup",
		Description: "Run the configured project setup checklist.",
	}, s.handleValidateSetup)
}
