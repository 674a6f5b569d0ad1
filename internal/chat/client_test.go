package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/history"
	"github.com/alexpernaoficial/Alex-Perna/internal/metrics"
)

type stubGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (s *stubGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.model, s.contents, s.config = model, contents, config
	return s.resp, s.err
}

func textResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	cand := &genai.Candidate{Content: genai.NewContentFromText(text, genai.RoleModel)}
	if len(chunks) > 0 {
		cand.GroundingMetadata = &genai.GroundingMetadata{GroundingChunks: chunks}
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{cand}}
}

func web(title, uri string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: title, URI: uri}}
}

func TestSend_BuildsConversation(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("Brasília.")}
	c := newClient(gen, Config{SystemInstruction: "Você é a Aria.", Search: true})

	prior := []history.Message{
		{Role: history.RoleUser, Text: "oi"},
		{Role: history.RoleSystem, Text: "ignored"},
		{Role: history.RoleModel, Text: "olá"},
	}
	answer, err := c.Send(context.Background(), prior, "qual a capital?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Brasília.", answer)

	assert.Equal(t, DefaultModel, gen.model)
	require.Len(t, gen.contents, 3)
	assert.Equal(t, "user", gen.contents[0].Role)
	assert.Equal(t, "model", gen.contents[1].Role)
	assert.Equal(t, "qual a capital?", gen.contents[2].Parts[0].Text)

	require.NotNil(t, gen.config.SystemInstruction)
	assert.Equal(t, "Você é a Aria.", gen.config.SystemInstruction.Parts[0].Text)
	require.Len(t, gen.config.Tools, 1)
	assert.NotNil(t, gen.config.Tools[0].GoogleSearch)
}

func TestSend_AttachmentBeforeText(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("ok")}
	c := newClient(gen, Config{})

	_, err := c.Send(context.Background(), nil, "o que é isto?", &Attachment{MIMEType: "image/png", Data: []byte{1, 2}})
	require.NoError(t, err)

	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, "o que é isto?", parts[1].Text)
	assert.Empty(t, gen.config.Tools)
}

func TestSend_EmptyMessage(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("")}
	c := newClient(gen, Config{})

	answer, err := c.Send(context.Background(), nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, NoResponse, answer)
	assert.Equal(t, " ", gen.contents[0].Parts[0].Text)
}

func TestSend_AppendsDistinctSources(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("Vai chover.",
		web("Clima", "https://a.example"),
		web("Clima", "https://a.example"),
		&genai.GroundingChunk{},
		web("", "https://no-title.example"),
		web("Previsão", "https://b.example"),
	)}
	c := newClient(gen, Config{Search: true})

	answer, err := c.Send(context.Background(), nil, "chove?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Vai chover.\n\n📋 **Fontes Consultadas:**\n• Clima: https://a.example\n• Previsão: https://b.example", answer)
}

func TestSend_Errors(t *testing.T) {
	m := metrics.NewMetrics()

	gen := &stubGenerator{err: genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key.", Status: "INVALID_ARGUMENT"}}
	_, err := newClient(gen, Config{Metrics: m}).Send(context.Background(), nil, "oi", nil)
	assert.True(t, failure.IsAuth(err))

	gen = &stubGenerator{err: errors.New("network down")}
	_, err = newClient(gen, Config{Metrics: m}).Send(context.Background(), nil, "oi", nil)
	require.Error(t, err)
	assert.False(t, failure.IsAuth(err))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.True(t, failure.IsAuth(err))
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("lista de compras"), 0o600))

	a, err := LoadAttachment(path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", a.MIMEType)
	assert.Equal(t, "[Arquivo Enviado: text/plain] resuma", a.Label("resuma"))
	assert.Equal(t, "[Arquivo Enviado: text/plain]", a.Label(""))

	_, err = LoadAttachment(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
	_, err = LoadAttachment(dir)
	assert.Error(t, err)
}
