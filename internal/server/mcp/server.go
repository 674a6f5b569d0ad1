// Package mcp exposes the text assistant and its conversation history as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexpernaoficial/Alex-Perna/internal/chat"
	"github.com/alexpernaoficial/Alex-Perna/internal/history"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
)

// Chatter answers one text turn given the prior conversation
type Chatter interface {
	Send(ctx context.Context, prior []history.Message, text string, attachment *chat.Attachment) (string, error)
}

type Config struct {
	ServerName    string
	ServerVersion string
	Chat          Chatter
	Store         history.Store

	// HistoryLimit caps how many messages the history tool returns by default
	HistoryLimit int
}

type Server struct {
	config    Config
	mcpServer *sdk.Server
	log       *slog.Logger

	// mu serializes load-modify-save cycles on the store
	mu sync.Mutex
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Chat == nil {
		return nil, fmt.Errorf("mcp server requires a chat client")
	}
	if cfg.Store == nil {
		cfg.Store = history.NopStore{}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = history.DefaultMemoryTurns
	}

	s := &Server{
		config: cfg,
		log:    logger.With("mcp"),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s, nil
}

// Start serves over stdin/stdout until ctx ends or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "ask",
		Description: "Ask Aria a question. The stored conversation is sent as context and the exchange is saved.",
	}, s.handleAsk)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "history",
		Description: "Show the most recent messages of the conversation with Aria",
	}, s.handleHistory)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "clear_history",
		Description: "Delete the stored conversation with Aria",
	}, s.handleClearHistory)
}
