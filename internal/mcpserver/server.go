// Package mcpserver exposes the paperpod stages as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/paperpod/internal/config"
)

// Server is the MCP server for paperpod.
type Server struct {
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates the MCP server and registers the stage tools. base bounds
// every stage run: it is cancelled on shutdown, not when a client goes away.
func New(base context.Context, cfg *config.Config, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := NewHandlers(base, NewConfigBuilder(cfg, logger), logger)

	mcpServer := server.NewMCPServer(
		"paperpod",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleGenerateScript)
	mcpServer.AddTool(tools[1], handlers.HandleGenerateMetadata)
	mcpServer.AddTool(tools[2], handlers.HandleGenerateAudio)
	mcpServer.AddTool(tools[3], handlers.HandleListVoices)

	return &Server{mcp: mcpServer, handlers: handlers, log: logger}
}

// ServeStdio speaks MCP over stdin/stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.InfoContext(ctx, "serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ServeHTTP serves streamable HTTP MCP on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	s.log.InfoContext(ctx, "serving MCP over HTTP", "addr", addr)
	httpServer := server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Start(addr) }()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}
