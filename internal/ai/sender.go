package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"
)

// messageSender sends a complete request and returns the complete reply
type messageSender interface {
	SendMessage(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error)
}

// StreamingMessageSender streams a reply and accumulates it into a single message. Long replies to large prompts
// are less likely to hit intermediate idle timeouts when streamed.
type StreamingMessageSender struct {
	client anthropic.Client
	logger zerolog.Logger
}

func NewStreamingMessageSender(client anthropic.Client, logger zerolog.Logger) StreamingMessageSender {
	return StreamingMessageSender{
		client: client,
		logger: logger,
	}
}

func (sms StreamingMessageSender) SendMessage(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error) {
	stream := sms.client.Messages.NewStreaming(ctx, params)
	response := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		err := response.Accumulate(event)
		if err != nil {
			return anthropic.Message{}, fmt.Errorf("failed to accumulate response content stream: %w", err)
		}
	}
	if stream.Err() != nil {
		return anthropic.Message{}, fmt.Errorf("failed to stream response: %w", stream.Err())
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			sms.logger.Error().Err(err).Msg("Failed to marshal corrupt message for inspection")
		}
		return anthropic.Message{}, fmt.Errorf("malformed message: %v", string(b))
	}

	sms.logger.Debug().
		Int64("input_tokens", response.Usage.InputTokens).
		Int64("output_tokens", response.Usage.OutputTokens).
		Int64("cache_read_tokens", response.Usage.CacheReadInputTokens).
		Msg("Token usage")

	return response, nil
}

// messageText concatenates the text blocks of a reply
func messageText(msg anthropic.Message) string {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text
}
