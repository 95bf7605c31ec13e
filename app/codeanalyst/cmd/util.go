package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/cchalm/codeanalyst/internal/ai"
	"github.com/cchalm/codeanalyst/internal/codebase"
	"github.com/cchalm/codeanalyst/internal/config"
	"github.com/cchalm/codeanalyst/internal/session"
	"github.com/cchalm/codeanalyst/internal/telemetry"
	"github.com/cchalm/codeanalyst/internal/transport"
)

// setupContext returns a context that is cancelled by the first interrupt. A second interrupt exits immediately.
func setupContext(logger zerolog.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		select {
		case <-interrupt:
		case <-ctx.Done():
			return
		}
		logger.Info().Msg("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		logger.Fatal().Msg("Forcing shutdown")
	}()

	return ctx, func() {
		signal.Stop(interrupt)
		cancel()
	}
}

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// createClient builds the client for the configured provider, routed through the resolution override and wrapped
// with tracing. The returned function flushes telemetry and must be called before exit.
func createClient(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Client, func(), error) {
	httpClient := transport.NewHTTPClient(transport.ClientOptions{
		Override:        cfg.Override(),
		WaitOnRateLimit: cfg.WaitOnRateLimit,
		Logger:          logger,
	})

	var client ai.Client
	var err error
	switch cfg.Provider {
	case ai.ProviderAnthropic:
		client, err = ai.NewAnthropicClient(cfg.APIKey(), httpClient, logger)
	default:
		client, err = ai.NewGeminiClient(ctx, cfg.APIKey(), httpClient, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.TelemetryConfig{
		Enabled:        cfg.TelemetryEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceVersion: versionInfo.Version,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}
	return ai.WithTracing(client, provider.Tracer()), shutdown, nil
}

func transcriptStore(cfg config.Config) ai.TranscriptStore {
	if cfg.TranscriptDir == "" {
		return nil
	}
	return ai.NewFileSystemTranscriptStore(cfg.TranscriptDir)
}

// runSession validates configuration, loads the snapshot, connects, and runs one session in the given mode
func runSession(app *application, mode codebase.Mode, streams ioStreams, opts session.Options) error {
	cfg := app.config
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel, streams.errOut)

	cb, err := codebase.Load(cfg.ContextPath, mode)
	if err != nil {
		return err
	}

	ctx, stop := setupContext(logger)
	defer stop()

	client, shutdown, err := createClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	opts.Model = cfg.ModelFor(mode)
	opts.Transcripts = transcriptStore(cfg)
	opts.In = streams.in
	opts.Out = streams.out
	opts.ErrOut = streams.errOut
	opts.Logger = logger

	s := session.New(client, cb, opts)
	logger.Debug().Str("session", s.ID()).Str("model", opts.Model).Str("provider", cfg.Provider).Msg("Session starting")
	if mode == codebase.ModeSingleShot {
		return s.Analyze(ctx)
	}
	return s.Run(ctx)
}

type ioStreams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}
