package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexpernaoficial/Alex-Perna/internal/chat"
	"github.com/alexpernaoficial/Alex-Perna/internal/history"
)

type AskArgs struct {
	Question string `json:"question" jsonschema:"the question or message for Aria"`
	File     string `json:"file,omitempty" jsonschema:"optional path of a file to attach (image, PDF, text)"`
}

type HistoryArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of recent messages to return"`
}

type ClearHistoryArgs struct{}

func (s *Server) handleAsk(ctx context.Context, req *sdk.CallToolRequest, args AskArgs) (*sdk.CallToolResult, any, error) {
	question := strings.TrimSpace(args.Question)
	if question == "" && args.File == "" {
		return nil, nil, fmt.Errorf("question is required")
	}

	var attachment *chat.Attachment
	if args.File != "" {
		var err error
		attachment, err = chat.LoadAttachment(args.File)
		if err != nil {
			return nil, nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.config.Store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	conversation := history.NewLog(msgs)

	answer, err := s.config.Chat.Send(ctx, conversation.Messages(), question, attachment)
	if err != nil {
		return nil, nil, fmt.Errorf("ask failed: %w", err)
	}

	label := question
	if attachment != nil {
		label = attachment.Label(question)
	}
	conversation.Add(history.RoleUser, label)
	conversation.Add(history.RoleModel, answer)
	if err := s.config.Store.Save(ctx, conversation.Messages()); err != nil {
		s.log.Warn("history save failed", "error", err)
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: answer}},
	}, nil, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryArgs) (*sdk.CallToolResult, any, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = s.config.HistoryLimit
	}

	msgs, err := s.config.Store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	recent := history.NewLog(msgs).Last(limit)

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Messages (%d of %d):", len(recent), len(msgs))},
	}
	for _, m := range recent {
		content = append(content, &sdk.TextContent{
			Text: fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format("2006-01-02 15:04"), m.Role, m.Text),
		})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handleClearHistory(ctx context.Context, req *sdk.CallToolRequest, args ClearHistoryArgs) (*sdk.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.config.Store.Clear(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to clear history: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: "History cleared"}},
	}, nil, nil
}
