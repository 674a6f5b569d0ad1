package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexpernaoficial/Alex-Perna/internal/chat"
	"github.com/alexpernaoficial/Alex-Perna/internal/config"
	"github.com/alexpernaoficial/Alex-Perna/internal/server/mcp"
)

// MCPHandler handles MCP server operations
type MCPHandler struct {
	cfg       *config.Config
	version   string
	gitCommit string
}

// NewMCPHandler creates a new MCP handler
func NewMCPHandler(cfg *config.Config, version, gitCommit string) *MCPHandler {
	return &MCPHandler{
		cfg:       cfg,
		version:   version,
		gitCommit: gitCommit,
	}
}

// ClientConfig returns the mcpServers block a client needs to launch this
// binary
func ClientConfig(execPath string, args []string) ([]byte, error) {
	type serverConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	type clientConfig struct {
		MCPServers map[string]serverConfig `json:"mcpServers"`
	}

	if args == nil {
		args = []string{}
	}
	return json.MarshalIndent(clientConfig{
		MCPServers: map[string]serverConfig{
			"aria": {Command: execPath, Args: args},
		},
	}, "", "  ")
}

// Run starts the MCP server; all diagnostics go to stderr since stdout
// carries the protocol
func (h *MCPHandler) Run() error {
	fmt.Fprintf(os.Stderr, "Starting MCP server...\n")
	fmt.Fprintf(os.Stderr, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(os.Stderr, "Version: %s (commit: %s)\n\n", h.version, h.gitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chat.NewClient(ctx, chat.Config{
		APIKey:            h.cfg.APIKey,
		Model:             h.cfg.Gemini.TextModel,
		SystemInstruction: h.cfg.Assistant.SystemInstruction,
		Search:            h.cfg.Assistant.Search,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}

	store, closeStore, err := OpenStore(h.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	execPath, err := os.Executable()
	if err != nil {
		execPath = "aria-mcp"
	}
	if clientJSON, err := ClientConfig(execPath, nil); err == nil {
		fmt.Fprintf(os.Stderr, "MCP Client Configuration:\n%s\n\n", clientJSON)
	}

	server, err := mcp.NewServer(mcp.Config{
		ServerName:    "aria-mcp",
		ServerVersion: h.version,
		Chat:          client,
		Store:         store,
		HistoryLimit:  h.cfg.Assistant.MemoryTurns,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "MCP server ready. Listening on stdin/stdout...\n")

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\nShutting down MCP server...\n")
	return nil
}
