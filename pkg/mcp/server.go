// Package mcp serves registered skills as Model Context Protocol tools.
// Every skill becomes one tool taking a single "input" object argument.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// ServerName is reported to MCP clients during initialization
const ServerName = "skillet"

// Server exposes a registry over MCP
type Server struct {
	registry *skills.Registry
	mcp      *server.MCPServer

	mu    sync.Mutex
	tools map[string]skills.Descriptor
}

// NewServer creates an MCP server with one tool per skill currently in reg
func NewServer(reg *skills.Registry, version string) *Server {
	s := &Server{
		registry: reg,
		mcp:      server.NewMCPServer(ServerName, version, server.WithToolCapabilities(true)),
		tools:    make(map[string]skills.Descriptor),
	}
	s.Sync(context.Background())
	return s
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Sync reconciles the tool list with the registry: new and changed skills
// are (re)added and tools whose skill is gone are deleted
func (s *Server) Sync(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string]skills.Descriptor)
	for _, desc := range s.registry.Descriptors() {
		current[desc.Name] = desc
	}

	var stale []string
	for name := range s.tools {
		if _, ok := current[name]; !ok {
			stale = append(stale, name)
			delete(s.tools, name)
		}
	}
	if len(stale) > 0 {
		s.mcp.DeleteTools(stale...)
		logger.G(ctx).WithField("tools", stale).Debug("removed MCP tools")
	}

	for name, desc := range current {
		if prev, ok := s.tools[name]; ok && sameDescriptor(prev, desc) {
			continue
		}
		s.mcp.AddTool(newTool(desc), s.handler(name))
		s.tools[name] = desc
		logger.G(ctx).WithField("tool", name).Debug("registered MCP tool")
	}
}

func sameDescriptor(a, b skills.Descriptor) bool {
	if a.Name != b.Name || a.Description != b.Description || len(a.Capabilities) != len(b.Capabilities) {
		return false
	}
	for i := range a.Capabilities {
		if a.Capabilities[i] != b.Capabilities[i] {
			return false
		}
	}
	return true
}

func newTool(desc skills.Descriptor) mcp.Tool {
	return mcp.NewTool(desc.Name,
		mcp.WithDescription(desc.Description),
		mcp.WithObject("input",
			mcp.Description("Arbitrary JSON input passed to the skill unchanged"),
		),
	)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := req.GetArguments()["input"]

		result, err := s.registry.Invoke(ctx, name, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError("failed to encode skill result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// Serve speaks MCP over the given streams until ctx is cancelled or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	errWriter := logger.G(ctx).WriterLevel(logrus.ErrorLevel)
	defer errWriter.Close()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errWriter, "", 0))
	return stdio.Listen(ctx, in, out)
}

// ServeStdio serves on stdin and stdout. Logs must go to stderr while it runs.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}
