package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/config"
)

// Config holds server configuration.
type Config struct {
	Port    int
	MaxRuns int
	Version string
}

// ConfigFrom takes the listen port and run cap from the resolved app config.
func ConfigFrom(app *config.Config, version string) Config {
	return Config{
		Port:    app.Port,
		MaxRuns: app.MaxRuns,
		Version: version,
	}
}

// Server is the MCP server exposing the prompt patterns as tools.
type Server struct {
	cfg  Config
	mcp  *server.MCPServer
	http *server.StreamableHTTPServer
	log  *slog.Logger
}

// New creates and configures the MCP server. Each tool call builds its own
// completion client from app.
func New(cfg Config, app *config.Config, logger *slog.Logger) *Server {
	newClient := func(ctx context.Context, model string) (completion.Client, error) {
		if model == "" {
			model = app.ActiveModel()
		}
		return completion.New(ctx, app.Completion(model, logger))
	}
	return newServer(cfg, NewHandlers(newClient, cfg.MaxRuns, logger), logger)
}

func newServer(cfg Config, handlers *Handlers, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"promptpatterns",
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleSelfRefine)
	mcpServer.AddTool(tools[1], handlers.HandleStyleTransfer)
	mcpServer.AddTool(tools[2], handlers.HandlePersonaAnswer)

	return &Server{
		cfg: cfg,
		mcp: mcpServer,
		http: server.NewStreamableHTTPServer(mcpServer,
			server.WithStateLess(true),
		),
		log: logger,
	}
}

// Start runs the HTTP MCP server until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr, "max_runs", s.cfg.MaxRuns)
	return s.http.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight calls.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
