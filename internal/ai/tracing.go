package ai

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WithTracing records a span for every request made through client
func WithTracing(client Client, tracer trace.Tracer) Client {
	return tracedClient{next: client, tracer: tracer}
}

type tracedClient struct {
	next   Client
	tracer trace.Tracer
}

func (tc tracedClient) Provider() string { return tc.next.Provider() }

func (tc tracedClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	ctx, span := tc.tracer.Start(ctx, "ai.generate", trace.WithAttributes(
		attribute.String("ai.provider", tc.next.Provider()),
		attribute.String("ai.model", model),
		attribute.Int("ai.prompt_chars", len(prompt)),
	))
	defer span.End()

	text, err := tc.next.Generate(ctx, model, prompt)
	endSpan(span, text, err)
	return text, err
}

func (tc tracedClient) NewConversation(ctx context.Context, model string) (Conversation, error) {
	conv, err := tc.next.NewConversation(ctx, model)
	if err != nil {
		return nil, err
	}
	return &tracedConversation{
		next:     conv,
		tracer:   tc.tracer,
		provider: tc.next.Provider(),
		model:    model,
	}, nil
}

type tracedConversation struct {
	next     Conversation
	tracer   trace.Tracer
	provider string
	model    string
	turns    int
}

func (tcv *tracedConversation) Submit(ctx context.Context, text string) (string, error) {
	ctx, span := tcv.tracer.Start(ctx, "ai.conversation.submit", trace.WithAttributes(
		attribute.String("ai.provider", tcv.provider),
		attribute.String("ai.model", tcv.model),
		attribute.Int("ai.turn_index", tcv.turns),
		attribute.Int("ai.prompt_chars", len(text)),
	))
	defer span.End()
	tcv.turns++

	reply, err := tcv.next.Submit(ctx, text)
	endSpan(span, reply, err)
	return reply, err
}

func endSpan(span trace.Span, reply string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("ai.reply_chars", len(reply)))
}
