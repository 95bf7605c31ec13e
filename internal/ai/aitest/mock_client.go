// Package aitest provides testify mocks of the ai client interfaces.
package aitest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cchalm/codeanalyst/internal/ai"
)

// MockClient is a mock implementation of ai.Client using testify/mock.
type MockClient struct {
	mock.Mock
}

var _ ai.Client = (*MockClient)(nil)

func (m *MockClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockClient) NewConversation(ctx context.Context, model string) (ai.Conversation, error) {
	args := m.Called(ctx, model)
	conv, _ := args.Get(0).(ai.Conversation)
	return conv, args.Error(1)
}

func (m *MockClient) Provider() string {
	args := m.Called()
	return args.String(0)
}

// MockConversation is a mock implementation of ai.Conversation using testify/mock.
type MockConversation struct {
	mock.Mock
}

func (m *MockConversation) Submit(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}
