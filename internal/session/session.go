// Package session drives single-shot analyses and interactive question sessions over a codebase snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cchalm/codeanalyst/internal/ai"
	"github.com/cchalm/codeanalyst/internal/codebase"
)

// DefaultExitKeywords end an interactive session when typed on their own, in any letter case
var DefaultExitKeywords = []string{"exit", "quit"}

const (
	bannerTitle     = "--- Interactive Code Analyst REPL ---"
	bannerSeparator = "------------------------------------------"
	inputPrompt     = ">>> "
	farewell        = "Exiting session."
)

// Options configures a Session
type Options struct {
	Model string
	// Project names the codebase in the priming turn
	Project string
	// Instruction precedes the context in single-shot mode
	Instruction  string
	ExitKeywords []string
	ErrorPolicy  ErrorPolicy

	// Transcripts, when set, receives the transcript after every exchange
	Transcripts ai.TranscriptStore
	// OnTransition, when set, is called for every state change
	OnTransition func(from, to State)

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
	Logger zerolog.Logger
}

// Session runs one mode against one client and one codebase snapshot. A Session is used once.
type Session struct {
	client   ai.Client
	codebase codebase.Context
	opts     Options

	state      State
	transcript ai.Transcript
	now        func() time.Time

	errColor   *color.Color
	titleColor *color.Color
}

// New creates a session. Missing writers discard output, a missing reader behaves as empty input.
func New(client ai.Client, cb codebase.Context, opts Options) *Session {
	if opts.In == nil {
		opts.In = strings.NewReader("")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.ErrOut == nil {
		opts.ErrOut = io.Discard
	}
	if len(opts.ExitKeywords) == 0 {
		opts.ExitKeywords = DefaultExitKeywords
	}
	if opts.ErrorPolicy == "" {
		opts.ErrorPolicy = TerminateOnError
	}

	s := &Session{
		client:     client,
		codebase:   cb,
		opts:       opts,
		state:      StateInit,
		now:        time.Now,
		errColor:   color.New(color.FgRed),
		titleColor: color.New(color.Bold),
	}
	s.transcript = ai.Transcript{
		ID:        uuid.NewString(),
		Provider:  client.Provider(),
		Model:     opts.Model,
		StartedAt: s.now(),
	}
	return s
}

// ID identifies the session and its transcript
func (s *Session) ID() string { return s.transcript.ID }

func (s *Session) State() State { return s.state }

// Analyze sends the instruction and the whole context as one prompt and prints the reply
func (s *Session) Analyze(ctx context.Context) error {
	defer s.transition(StateTerminated)
	s.transcript.Mode = ai.TranscriptAnalysis

	prompt := ai.ComposeAnalysisPrompt(s.opts.Instruction, s.codebase.Text())
	s.transition(StateProcessing)
	s.record(ai.RoleUser, prompt)

	text, err := s.client.Generate(ctx, s.opts.Model, prompt)
	if err != nil {
		return fmt.Errorf("failed to analyze codebase: %w", err)
	}
	s.record(ai.RoleModel, text)
	s.saveTranscript()

	_, _ = fmt.Fprintln(s.opts.Out, text)
	return nil
}

// Run primes a conversation with the codebase and then answers one line of input at a time until an exit keyword,
// end of input, an interrupt, or a failed turn under TerminateOnError. Only failures to set up the conversation are
// returned as errors.
func (s *Session) Run(ctx context.Context) error {
	defer s.transition(StateTerminated)
	s.transcript.Mode = ai.TranscriptConversation

	conv, err := s.client.NewConversation(ctx, s.opts.Model)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if err := s.prime(ctx, conv); err != nil {
		if ctx.Err() != nil {
			s.sayFarewell()
			return nil
		}
		return err
	}
	s.printBanner()

	lines := newLineReader(s.opts.In)
	defer lines.Close()

	for {
		s.transition(StateAwaitingInput)
		_, _ = fmt.Fprint(s.opts.Out, inputPrompt)

		line, err := lines.Next(ctx)
		if ctx.Err() != nil {
			s.sayFarewell()
			return nil
		}
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(s.opts.Out)
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if s.isExitKeyword(line) {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		s.transition(StateProcessing)
		if !s.processTurn(ctx, conv, line) {
			return nil
		}
	}
}

func (s *Session) prime(ctx context.Context, conv ai.Conversation) error {
	prompt, err := ai.BuildPrimingPrompt(s.opts.Project, s.codebase.Text())
	if err != nil {
		return err
	}

	s.record(ai.RoleUser, prompt)
	reply, err := conv.Submit(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to load codebase context into conversation: %w", err)
	}
	s.record(ai.RoleModel, reply)
	s.saveTranscript()

	s.opts.Logger.Debug().Str("reply", reply).Msg("Conversation primed")
	s.transition(StatePrimed)
	return nil
}

// processTurn forwards one line and prints the reply. It returns false when the session should end.
func (s *Session) processTurn(ctx context.Context, conv ai.Conversation, line string) bool {
	reply, err := conv.Submit(ctx, line)
	if err != nil {
		if ctx.Err() != nil {
			s.sayFarewell()
			return false
		}
		_, _ = s.errColor.Fprintf(s.opts.ErrOut, "\n[Error]: %v\n\n", err)
		s.opts.Logger.Debug().Err(err).Str("policy", string(s.opts.ErrorPolicy)).Msg("Turn failed")
		return s.opts.ErrorPolicy == ContinueOnError
	}

	s.record(ai.RoleUser, line)
	s.record(ai.RoleModel, reply)
	s.saveTranscript()

	_, _ = fmt.Fprintf(s.opts.Out, "\n%s\n\n", reply)
	return true
}

func (s *Session) isExitKeyword(line string) bool {
	for _, keyword := range s.opts.ExitKeywords {
		if strings.EqualFold(line, keyword) {
			return true
		}
	}
	return false
}

func (s *Session) printBanner() {
	_, _ = s.titleColor.Fprintln(s.opts.Out, bannerTitle)
	_, _ = fmt.Fprintf(s.opts.Out, "Model: %s | Context Loaded: %d lines (%s).\n",
		s.opts.Model, s.codebase.LineCount(), humanize.Bytes(uint64(s.codebase.Size())))
	if s.codebase.IsPlaceholder() {
		_, _ = fmt.Fprintf(s.opts.Out, "No codebase context found at %s, answering general questions.\n", s.codebase.Path())
	}
	_, _ = fmt.Fprintf(s.opts.Out, "Type %s to end the session.\n", quoteKeywords(s.opts.ExitKeywords))
	_, _ = fmt.Fprintln(s.opts.Out, bannerSeparator)
}

func (s *Session) sayFarewell() {
	_, _ = fmt.Fprintf(s.opts.Out, "\n%s\n", farewell)
}

func (s *Session) transition(to State) {
	from := s.state
	if from == to || from == StateTerminated {
		return
	}
	s.state = to
	s.opts.Logger.Debug().Stringer("from", from).Stringer("to", to).Msg("Session state changed")
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(from, to)
	}
}

func (s *Session) record(role ai.Role, text string) {
	s.transcript.Turns = append(s.transcript.Turns, ai.Turn{Role: role, Text: text, At: s.now()})
}

func (s *Session) saveTranscript() {
	if s.opts.Transcripts == nil {
		return
	}
	if err := s.opts.Transcripts.Set(s.transcript.ID, s.transcript); err != nil {
		s.opts.Logger.Warn().Err(err).Str("session", s.transcript.ID).Msg("Failed to save transcript")
	}
}

// quoteKeywords formats keywords as 'a', 'b' or 'c'
func quoteKeywords(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = "'" + k + "'"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}
