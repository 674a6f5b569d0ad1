// Package chat sends typed messages and file attachments to a text model
// with web search grounding.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/history"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/metrics"
)

// DefaultModel is the text model used for typed chat
const DefaultModel = "gemini-2.5-flash"

// NoResponse replaces an empty model answer
const NoResponse = "Sem resposta."

const sourcesHeader = "\n\n📋 **Fontes Consultadas:**\n"

// Attachment is a file sent along with a message
type Attachment struct {
	MIMEType string
	Data     []byte
}

// contentGenerator is the slice of the genai client the chat uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the chat client
type Config struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Search            bool
	Metrics           *metrics.Metrics
}

// Client sends one-shot chat turns carrying the prior conversation
type Client struct {
	gen     contentGenerator
	config  Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a client backed by the Gemini API
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, &failure.AuthError{Err: errors.New("missing API key")}
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, config), nil
}

func newClient(gen contentGenerator, config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Client{
		gen:     gen,
		config:  config,
		log:     logger.With("chat"),
		metrics: config.Metrics,
	}
}

// Send asks the model with prior as context and returns the answer, with
// consulted web sources appended when the answer was grounded.
func (c *Client) Send(ctx context.Context, prior []history.Message, text string, attachment *Attachment) (string, error) {
	started := time.Now()

	resp, err := c.gen.GenerateContent(ctx, c.config.Model, buildContents(prior, text, attachment), c.generateConfig())
	if err != nil {
		c.metrics.ChatResult("error", time.Since(started))
		return "", classify(err)
	}
	c.metrics.ChatResult("ok", time.Since(started))

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		answer = NoResponse
	}
	if sources := groundingSources(resp); len(sources) > 0 {
		answer += sourcesHeader + strings.Join(sources, "\n")
	}

	c.log.Debug("chat answered", "elapsed", time.Since(started), "chars", len(answer))
	return answer, nil
}

func (c *Client) generateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if c.config.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.config.SystemInstruction, genai.RoleUser)
	}
	if c.config.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// buildContents keeps user and model turns of prior and appends the new
// message. The attachment goes before the text.
func buildContents(prior []history.Message, text string, attachment *Attachment) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prior)+1)
	for _, m := range prior {
		switch m.Role {
		case history.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		case history.RoleModel:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleModel))
		}
	}

	var parts []*genai.Part
	if attachment != nil {
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MIMEType))
	}
	switch {
	case text != "":
		parts = append(parts, genai.NewPartFromText(text))
	case attachment == nil:
		parts = append(parts, genai.NewPartFromText(" "))
	}

	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

// groundingSources lists distinct "• title: uri" lines in order
func groundingSources(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		line := fmt.Sprintf("• %s: %s", chunk.Web.Title, chunk.Web.URI)
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPI(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPI(*apiErrPtr, err)
	}
	return fmt.Errorf("chat request: %w", err)
}

func classifyAPI(apiErr genai.APIError, err error) error {
	if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden ||
		apiErr.Status == "UNAUTHENTICATED" || strings.Contains(strings.ToLower(apiErr.Message), "api key") {
		return &failure.AuthError{Err: err}
	}
	return fmt.Errorf("chat request: %w", err)
}
