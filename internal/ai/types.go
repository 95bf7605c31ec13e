// Package ai provides clients for the generation services and conversation management.
package ai

import (
	"context"
	"time"
)

// Client is one authenticated handle to a generation service
type Client interface {
	// Generate sends a single prompt with no history and returns the reply text
	Generate(ctx context.Context, model string, prompt string) (string, error)
	// NewConversation opens a multi-turn conversation bound to one model
	NewConversation(ctx context.Context, model string) (Conversation, error)
	// Provider names the service behind the client
	Provider() string
}

// Conversation is a handle to an ordered history of turns. Each submitted text is appended as a user turn and every
// earlier turn is part of the request that produces the reply.
type Conversation interface {
	Submit(ctx context.Context, text string) (string, error)
}

// Role identifies who produced a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is a single message in a transcript
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// TranscriptMode records how a transcript's session was run
type TranscriptMode string

const (
	// TranscriptAnalysis is a single prompt and its reply
	TranscriptAnalysis TranscriptMode = "analysis"
	// TranscriptConversation starts with a priming turn followed by questions
	TranscriptConversation TranscriptMode = "conversation"
)

// Transcript is a serializable record of one session's exchanges
type Transcript struct {
	ID        string         `json:"id"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Mode      TranscriptMode `json:"mode,omitempty"`
	StartedAt time.Time      `json:"startedAt"`
	Turns     []Turn         `json:"turns"`
}
