package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cchalm/codeanalyst/internal/config"
)

// flagBinding copies a flag's value into the configuration, but only when the flag was given on the command line,
// so that unset flags leave environment values in place
type flagBinding struct {
	name  string
	apply func(fs *pflag.FlagSet, cfg *config.Config) error
}

func stringFlag(name string, dest func(*config.Config) *string) flagBinding {
	return flagBinding{name: name, apply: func(fs *pflag.FlagSet, cfg *config.Config) error {
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dest(cfg) = v
		return nil
	}}
}

func boolFlag(name string, dest func(*config.Config) *bool) flagBinding {
	return flagBinding{name: name, apply: func(fs *pflag.FlagSet, cfg *config.Config) error {
		v, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dest(cfg) = v
		return nil
	}}
}

var flagBindings = []flagBinding{
	stringFlag("provider", func(c *config.Config) *string { return &c.Provider }),
	stringFlag("model", func(c *config.Config) *string { return &c.Model }),
	stringFlag("context", func(c *config.Config) *string { return &c.ContextPath }),
	stringFlag("resolve-address", func(c *config.Config) *string { return &c.ResolveAddress }),
	boolFlag("wait-on-rate-limit", func(c *config.Config) *bool { return &c.WaitOnRateLimit }),
	stringFlag("transcript-dir", func(c *config.Config) *string { return &c.TranscriptDir }),
	stringFlag("log-level", func(c *config.Config) *string { return &c.LogLevel }),
	boolFlag("telemetry", func(c *config.Config) *bool { return &c.TelemetryEnabled }),
	stringFlag("otlp-endpoint", func(c *config.Config) *string { return &c.OTLPEndpoint }),
	boolFlag("otlp-insecure", func(c *config.Config) *bool { return &c.OTLPInsecure }),
	stringFlag("prompt", func(c *config.Config) *string { return &c.Instruction }),
	stringFlag("project", func(c *config.Config) *string { return &c.Project }),
	stringFlag("on-error", func(c *config.Config) *string { return &c.OnError }),
}

func addPersistentFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("provider", "gemini", "Generation service: gemini or anthropic [CODEANALYST_PROVIDER]")
	fs.String("model", "", "Model identifier; defaults depend on provider and mode [CODEANALYST_MODEL]")
	fs.String("context", "codebase_context.txt", "Path of the codebase snapshot [CODEANALYST_CONTEXT]")
	fs.String("resolve-address", "", "IPv4 address dialed instead of resolving the service host, or 'none' [CODEANALYST_RESOLVE_ADDRESS]")
	fs.Bool("wait-on-rate-limit", false, "Wait out HTTP 429 retry-after delays and resend [CODEANALYST_WAIT_ON_RATE_LIMIT]")
	fs.String("transcript-dir", "", "Directory where session transcripts are saved [CODEANALYST_TRANSCRIPT_DIR]")
	fs.String("log-level", "warn", "Log level: debug, info, warn or error [CODEANALYST_LOG_LEVEL]")
	fs.Bool("telemetry", false, "Export request traces over OTLP/HTTP [CODEANALYST_TELEMETRY]")
	fs.String("otlp-endpoint", "", "OTLP/HTTP collector host:port [CODEANALYST_OTLP_ENDPOINT]")
	fs.Bool("otlp-insecure", false, "Send traces without TLS [CODEANALYST_OTLP_INSECURE]")
}

// applyFlags overrides cfg with every binding whose flag is defined on cmd and was set
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	for _, binding := range flagBindings {
		if fs.Lookup(binding.name) == nil || !fs.Changed(binding.name) {
			continue
		}
		if err := binding.apply(fs, cfg); err != nil {
			return err
		}
	}
	return nil
}
