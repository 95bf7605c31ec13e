package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const (
	ProviderGemini = "gemini"

	// GeminiHost is the API host the Gemini backend connects to
	GeminiHost = "generativelanguage.googleapis.com"

	DefaultGeminiAnalysisModel    = "gemini-2.5-pro"
	DefaultGeminiInteractiveModel = "gemini-2.5-flash"
)

// GeminiClient talks to the Gemini API. Conversation history is held by the SDK's chat session and sent with every
// turn.
type GeminiClient struct {
	client *genai.Client
	logger zerolog.Logger
}

// NewGeminiClient builds a client that sends all traffic through httpClient. No request is made until the first
// Generate or Submit.
func NewGeminiClient(ctx context.Context, apiKey string, httpClient *http.Client, logger zerolog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, logger: logger}, nil
}

func (gc *GeminiClient) Provider() string { return ProviderGemini }

func (gc *GeminiClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	resp, err := gc.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	gc.logUsage(model, resp)
	return resp.Text(), nil
}

func (gc *GeminiClient) NewConversation(ctx context.Context, model string) (Conversation, error) {
	chat, err := gc.client.Chats.Create(ctx, model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &geminiConversation{chat: chat, model: model, client: gc}, nil
}

func (gc *GeminiClient) logUsage(model string, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	gc.logger.Debug().
		Str("model", model).
		Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount).
		Int32("output_tokens", resp.UsageMetadata.CandidatesTokenCount).
		Int32("total_tokens", resp.UsageMetadata.TotalTokenCount).
		Msg("Token usage")
}

type geminiConversation struct {
	chat   *genai.Chat
	model  string
	client *GeminiClient
}

func (gcv *geminiConversation) Submit(ctx context.Context, text string) (string, error) {
	resp, err := gcv.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	gcv.client.logUsage(gcv.model, resp)
	return resp.Text(), nil
}
