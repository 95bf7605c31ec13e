package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

const (
	ProviderAnthropic = "anthropic"

	// AnthropicHost is the API host the Anthropic backend connects to
	AnthropicHost = "api.anthropic.com"

	DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_0)

	defaultMaxOutputTokens = 8192
)

// AnthropicClient talks to the Anthropic Messages API. The API keeps no server-side history, so conversations
// resend every earlier turn with each request.
type AnthropicClient struct {
	sender          messageSender
	maxOutputTokens int64
}

// NewAnthropicClient builds a client that sends all traffic through httpClient. SDK retries are disabled so that a
// failed request is reported, not repeated.
func NewAnthropicClient(apiKey string, httpClient *http.Client, logger zerolog.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	client := anthropic.NewClient(
		option.WithHTTPClient(httpClient),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &AnthropicClient{
		sender:          NewStreamingMessageSender(client, logger),
		maxOutputTokens: defaultMaxOutputTokens,
	}, nil
}

func (ac *AnthropicClient) Provider() string { return ProviderAnthropic }

func (ac *AnthropicClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	response, err := ac.sender.SendMessage(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: ac.maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return messageText(response), nil
}

func (ac *AnthropicClient) NewConversation(_ context.Context, model string) (Conversation, error) {
	return &AnthropicConversation{
		sender:          ac.sender,
		model:           anthropic.Model(model),
		maxOutputTokens: ac.maxOutputTokens,
	}, nil
}

// AnthropicConversation keeps the turns of one conversation client-side
type AnthropicConversation struct {
	sender          messageSender
	model           anthropic.Model
	maxOutputTokens int64

	Turns []ConversationTurn
}

// ConversationTurn is a pair of messages: a user message, and an optional assistant response
type ConversationTurn struct {
	UserMessage anthropic.MessageParam
	Response    *anthropic.Message // May be nil
}

// Submit appends a user turn and sends the whole history. A turn whose request fails is dropped again so that the
// history never holds two user messages in a row.
func (cc *AnthropicConversation) Submit(ctx context.Context, text string) (string, error) {
	cc.Turns = append(cc.Turns, ConversationTurn{
		UserMessage: anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
	})

	response, err := cc.sender.SendMessage(ctx, anthropic.MessageNewParams{
		Model:     cc.model,
		MaxTokens: cc.maxOutputTokens,
		Messages:  cc.messageParams(),
	})
	if err != nil {
		cc.Turns = cc.Turns[:len(cc.Turns)-1]
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	cc.Turns[len(cc.Turns)-1].Response = &response
	return messageText(response), nil
}

func (cc *AnthropicConversation) messageParams() []anthropic.MessageParam {
	messageParams := []anthropic.MessageParam{}
	for _, turn := range cc.Turns {
		messageParams = append(messageParams, turn.UserMessage)
		if turn.Response != nil {
			messageParams = append(messageParams, turn.Response.ToParam())
		}
	}
	return messageParams
}
