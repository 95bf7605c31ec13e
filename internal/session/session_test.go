package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/codeanalyst/internal/ai"
	"github.com/cchalm/codeanalyst/internal/ai/aitest"
	"github.com/cchalm/codeanalyst/internal/codebase"
)

var isPrimingPrompt = mock.MatchedBy(func(text string) bool {
	return strings.HasPrefix(text, "You are an expert code analyst.")
})

type testSession struct {
	*Session
	client      *aitest.MockClient
	conv        *aitest.MockConversation
	out         *bytes.Buffer
	errOut      *bytes.Buffer
	transitions []State
}

func newTestSession(t *testing.T, cb codebase.Context, input io.Reader, configure func(*Options)) *testSession {
	t.Helper()
	ts := &testSession{
		client: &aitest.MockClient{},
		conv:   &aitest.MockConversation{},
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	ts.client.On("Provider").Return(ai.ProviderGemini)

	opts := Options{
		Model:   "gemini-test",
		Project: "LogicPP",
		In:      input,
		Out:     ts.out,
		ErrOut:  ts.errOut,
		Logger:  zerolog.Nop(),
		OnTransition: func(from, to State) {
			ts.transitions = append(ts.transitions, to)
		},
	}
	if configure != nil {
		configure(&opts)
	}
	ts.Session = New(ts.client, cb, opts)
	return ts
}

func (ts *testSession) expectConversation() {
	ts.client.On("NewConversation", mock.Anything, "gemini-test").Return(ts.conv, nil).Once()
	ts.conv.On("Submit", mock.Anything, isPrimingPrompt).Return("Context loaded.", nil).Once()
}

func TestAnalyze_SendsInstructionAndContext(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("int x = 1;"), nil, func(o *Options) {
		o.Instruction = "Analyze the provided codebase."
	})
	ts.client.On("Generate", mock.Anything, "gemini-test", "Analyze the provided codebase.\n\nint x = 1;").
		Return("It declares x.", nil).Once()

	err := ts.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "It declares x.\n", ts.out.String())
	assert.Empty(t, ts.errOut.String())
	assert.Equal(t, StateTerminated, ts.State())
	ts.client.AssertNumberOfCalls(t, "Generate", 1)
	ts.client.AssertExpectations(t)
}

func TestAnalyze_DefaultInstruction(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("int x = 1;"), nil, nil)
	ts.client.On("Generate", mock.Anything, "gemini-test", ai.DefaultInstruction+"\n\nint x = 1;").Return("ok", nil).Once()

	require.NoError(t, ts.Analyze(context.Background()))
	ts.client.AssertExpectations(t)
}

func TestAnalyze_ServiceError(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("int x = 1;"), nil, nil)
	ts.client.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	err := ts.Analyze(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, ts.out.String())
	assert.Equal(t, StateTerminated, ts.State())
}

func TestRun_QuitRightAfterPriming(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("int x = 1;"), strings.NewReader("quit\n"), nil)
	ts.expectConversation()

	err := ts.Run(context.Background())
	require.NoError(t, err)

	ts.conv.AssertNumberOfCalls(t, "Submit", 1)
	ts.conv.AssertExpectations(t)
	ts.client.AssertExpectations(t)
	assert.Equal(t, []State{StatePrimed, StateAwaitingInput, StateTerminated}, ts.transitions)
}

func TestRun_PrimingTurnCarriesContext(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("int x = 1;\nint y = 2;\n"), strings.NewReader("exit\n"), nil)
	ts.client.On("NewConversation", mock.Anything, "gemini-test").Return(ts.conv, nil).Once()
	ts.conv.On("Submit", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "project called LogicPP") && strings.Contains(text, "int x = 1;\nint y = 2;\n")
	})).Return("I have loaded LogicPP.", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	ts.conv.AssertExpectations(t)
	assert.Contains(t, ts.out.String(), bannerTitle)
	assert.Contains(t, ts.out.String(), "Model: gemini-test | Context Loaded: 2 lines (22 B).")
	assert.Contains(t, ts.out.String(), "Type 'exit' or 'quit' to end the session.")
	assert.NotContains(t, ts.out.String(), "I have loaded LogicPP.")
}

func TestRun_ExitKeywordAnyCase(t *testing.T) {
	for _, keyword := range []string{"exit", "EXIT", "Quit", "qUiT"} {
		ts := newTestSession(t, codebase.FromText("code"), strings.NewReader(keyword+"\n"), nil)
		ts.expectConversation()

		require.NoError(t, ts.Run(context.Background()), keyword)
		ts.conv.AssertNumberOfCalls(t, "Submit", 1)
	}
}

func TestRun_KeywordMustMatchWholeLine(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("quit now\nexit\n"), nil)
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "quit now").Return("Sure.", nil).Once()

	require.NoError(t, ts.Run(context.Background()))
	ts.conv.AssertNumberOfCalls(t, "Submit", 2)
}

func TestRun_BlankLinesAreSkipped(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("\n   \n\t\nquit\n"), nil)
	ts.expectConversation()

	require.NoError(t, ts.Run(context.Background()))

	ts.conv.AssertNumberOfCalls(t, "Submit", 1)
	assert.Equal(t, 4, strings.Count(ts.out.String(), inputPrompt))
	assert.NotContains(t, ts.transitions, StateProcessing)
}

func TestRun_EachLineIsOneTurn(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("what is x?\nand y?\nquit\n"), nil)
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "what is x?").Return("x is 1", nil).Once()
	ts.conv.On("Submit", mock.Anything, "and y?").Return("y is 2", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	ts.conv.AssertNumberOfCalls(t, "Submit", 3)
	ts.conv.AssertExpectations(t)
	assert.Equal(t, 1, strings.Count(ts.out.String(), "\nx is 1\n\n"))
	assert.Equal(t, 1, strings.Count(ts.out.String(), "\ny is 2\n\n"))
	assert.Equal(t, []State{
		StatePrimed,
		StateAwaitingInput, StateProcessing,
		StateAwaitingInput, StateProcessing,
		StateAwaitingInput,
		StateTerminated,
	}, ts.transitions)
}

func TestRun_EndOfInput(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("what is x?"), nil)
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "what is x?").Return("x is 1", nil).Once()

	require.NoError(t, ts.Run(context.Background()))
	ts.conv.AssertNumberOfCalls(t, "Submit", 2)
	assert.Equal(t, StateTerminated, ts.State())
}

func TestRun_MissingContextUsesPlaceholder(t *testing.T) {
	cb, err := codebase.Load(t.TempDir()+"/"+codebase.DefaultPath, codebase.ModeInteractive)
	require.NoError(t, err)

	ts := newTestSession(t, cb, strings.NewReader(""), nil)
	ts.client.On("NewConversation", mock.Anything, "gemini-test").Return(ts.conv, nil).Once()
	ts.conv.On("Submit", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, codebase.Placeholder)
	})).Return("ok", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	ts.conv.AssertExpectations(t)
	assert.Contains(t, ts.transitions, StateAwaitingInput)
	assert.Contains(t, ts.out.String(), "Context Loaded: 1 lines")
	assert.Contains(t, ts.out.String(), "No codebase context found at")
}

func TestRun_TurnErrorTerminatesByDefault(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("first\nsecond\n"), nil)
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "first").Return("", errors.New("503 unavailable")).Once()

	require.NoError(t, ts.Run(context.Background()))

	assert.Contains(t, ts.errOut.String(), "[Error]: 503 unavailable")
	ts.conv.AssertNumberOfCalls(t, "Submit", 2)
	ts.conv.AssertNotCalled(t, "Submit", mock.Anything, "second")
	assert.Equal(t, StateTerminated, ts.State())
}

func TestRun_TurnErrorContinuePolicy(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("first\nsecond\nquit\n"), func(o *Options) {
		o.ErrorPolicy = ContinueOnError
	})
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "first").Return("", errors.New("503 unavailable")).Once()
	ts.conv.On("Submit", mock.Anything, "second").Return("answer", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	assert.Contains(t, ts.errOut.String(), "[Error]: 503 unavailable")
	assert.Contains(t, ts.out.String(), "\nanswer\n\n")
	ts.conv.AssertExpectations(t)
}

func TestRun_PrimingFailure(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("question\n"), nil)
	ts.client.On("NewConversation", mock.Anything, "gemini-test").Return(ts.conv, nil).Once()
	ts.conv.On("Submit", mock.Anything, isPrimingPrompt).Return("", errors.New("context too large")).Once()

	err := ts.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context too large")
	assert.NotContains(t, ts.out.String(), bannerTitle)
	ts.conv.AssertNumberOfCalls(t, "Submit", 1)
	assert.NotContains(t, ts.transitions, StateAwaitingInput)
}

func TestRun_ConversationCreationFailure(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader(""), nil)
	ts.client.On("NewConversation", mock.Anything, "gemini-test").Return(nil, errors.New("bad model")).Once()

	err := ts.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestRun_InterruptWhileAwaitingInput(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestSession(t, codebase.FromText("code"), pr, func(o *Options) {
		o.OnTransition = func(from, to State) {
			if to == StateAwaitingInput {
				cancel()
			}
		}
	})
	ts.expectConversation()

	require.NoError(t, ts.Run(ctx))

	assert.True(t, strings.HasSuffix(ts.out.String(), "\n"+farewell+"\n"))
	ts.conv.AssertNumberOfCalls(t, "Submit", 1)
	assert.Equal(t, StateTerminated, ts.State())
}

func TestRun_InterruptWhileProcessing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("long question\nnext\n"), nil)
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "long question").
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()

	require.NoError(t, ts.Run(ctx))

	assert.Contains(t, ts.out.String(), farewell)
	assert.Empty(t, ts.errOut.String())
	ts.conv.AssertNotCalled(t, "Submit", mock.Anything, "next")
}

type memoryTranscriptStore struct {
	saved map[string]ai.Transcript
}

func (m *memoryTranscriptStore) Get(key string) (*ai.Transcript, error) {
	t, ok := m.saved[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memoryTranscriptStore) Set(key string, value ai.Transcript) error {
	m.saved[key] = value
	return nil
}

func TestRun_SavesTranscript(t *testing.T) {
	store := &memoryTranscriptStore{saved: map[string]ai.Transcript{}}
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("what is x?\nquit\n"), func(o *Options) {
		o.Transcripts = store
	})
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "what is x?").Return("x is 1", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	saved, err := store.Get(ts.ID())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, ai.ProviderGemini, saved.Provider)
	assert.Equal(t, "gemini-test", saved.Model)
	assert.Equal(t, ai.TranscriptConversation, saved.Mode)
	require.Len(t, saved.Turns, 4)
	assert.Equal(t, ai.RoleUser, saved.Turns[0].Role)
	assert.Equal(t, "Context loaded.", saved.Turns[1].Text)
	assert.Equal(t, "what is x?", saved.Turns[2].Text)
	assert.Equal(t, "x is 1", saved.Turns[3].Text)
}

func TestAnalyze_SavesAnalysisTranscript(t *testing.T) {
	store := &memoryTranscriptStore{saved: map[string]ai.Transcript{}}
	ts := newTestSession(t, codebase.FromText("int x = 1;"), nil, func(o *Options) {
		o.Transcripts = store
	})
	ts.client.On("Generate", mock.Anything, "gemini-test", ai.DefaultInstruction+"\n\nint x = 1;").Return("One global.", nil).Once()

	require.NoError(t, ts.Analyze(context.Background()))

	saved, err := store.Get(ts.ID())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, ai.TranscriptAnalysis, saved.Mode)
	require.Len(t, saved.Turns, 2)

	md, err := saved.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, md, "## Prompt")
	assert.NotContains(t, md, "## Priming")
}

func TestRun_CustomExitKeywords(t *testing.T) {
	ts := newTestSession(t, codebase.FromText("code"), strings.NewReader("quit\nbye\n"), func(o *Options) {
		o.ExitKeywords = []string{"bye"}
	})
	ts.expectConversation()
	ts.conv.On("Submit", mock.Anything, "quit").Return("quit what?", nil).Once()

	require.NoError(t, ts.Run(context.Background()))

	ts.conv.AssertNumberOfCalls(t, "Submit", 2)
	assert.Contains(t, ts.out.String(), "Type 'bye' to end the session.")
}

func TestParseErrorPolicy(t *testing.T) {
	policy, err := ParseErrorPolicy("continue")
	require.NoError(t, err)
	assert.Equal(t, ContinueOnError, policy)

	policy, err = ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TerminateOnError, policy)

	_, err = ParseErrorPolicy("retry")
	require.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_INPUT", StateAwaitingInput.String())
	assert.Equal(t, "TERMINATED", StateTerminated.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestQuoteKeywords(t *testing.T) {
	assert.Equal(t, "'exit'", quoteKeywords([]string{"exit"}))
	assert.Equal(t, "'exit' or 'quit'", quoteKeywords([]string{"exit", "quit"}))
	assert.Equal(t, "'a', 'b' or 'c'", quoteKeywords([]string{"a", "b", "c"}))
}
