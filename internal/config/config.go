// Package config provides configuration management for codeanalyst.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"

	"github.com/cchalm/codeanalyst/internal/ai"
	"github.com/cchalm/codeanalyst/internal/codebase"
	"github.com/cchalm/codeanalyst/internal/transport"
)

// ErrMissingCredential is returned by Validate when the selected provider has no API key
var ErrMissingCredential = errors.New("missing credential")

// NoOverride disables the resolution override when used as ResolveAddress
const NoOverride = "none"

// Config holds the configuration for one run. Values come from the environment and may be overridden by flags.
type Config struct {
	Provider        string `env:"CODEANALYST_PROVIDER" envDefault:"gemini" validate:"oneof=gemini anthropic"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY" validate:"required_if=Provider gemini"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" validate:"required_if=Provider anthropic"`

	// Model is fixed for the process lifetime; empty selects the provider's default for the mode
	Model string `env:"CODEANALYST_MODEL"`
	// Instruction precedes the context in single-shot mode
	Instruction string `env:"PROMPT" envDefault:"Analyze the provided codebase."`
	ContextPath string `env:"CODEANALYST_CONTEXT" envDefault:"codebase_context.txt" validate:"required"`
	Project     string `env:"CODEANALYST_PROJECT"`

	// ResolveAddress is dialed instead of resolving the provider's host. Empty selects the provider default,
	// NoOverride disables the override.
	ResolveAddress  string `env:"CODEANALYST_RESOLVE_ADDRESS" validate:"omitempty,ipv4|eq=none"`
	WaitOnRateLimit bool   `env:"CODEANALYST_WAIT_ON_RATE_LIMIT"`

	OnError       string `env:"CODEANALYST_ON_ERROR" envDefault:"terminate" validate:"oneof=terminate continue"`
	TranscriptDir string `env:"CODEANALYST_TRANSCRIPT_DIR"`
	LogLevel      string `env:"CODEANALYST_LOG_LEVEL" envDefault:"warn" validate:"oneof=debug info warn error"`

	TelemetryEnabled bool   `env:"CODEANALYST_TELEMETRY"`
	OTLPEndpoint     string `env:"CODEANALYST_OTLP_ENDPOINT"`
	OTLPInsecure     bool   `env:"CODEANALYST_OTLP_INSECURE"`
}

// Load reads configuration from environment variables with defaults
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that required values are present and enumerations hold known values. It makes no network calls.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	// Report a missing credential first, the same way regardless of what else is wrong
	for _, fe := range validationErrs {
		if fe.Tag() == "required_if" {
			return fmt.Errorf("%w: %s environment variable not set", ErrMissingCredential, envName(fe.StructField()))
		}
	}

	messages := []string{}
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s must be set", envName(fe.StructField())))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s], got %q",
				envName(fe.StructField()), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value()))
		default:
			messages = append(messages, fmt.Sprintf("%s has invalid value %q", envName(fe.StructField()), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

func envName(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	return f.Tag.Get("env")
}

// APIKey returns the credential for the selected provider
func (c Config) APIKey() string {
	if c.Provider == ai.ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

// ModelFor returns the configured model, or the provider's default for the mode
func (c Config) ModelFor(mode codebase.Mode) string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ai.ProviderAnthropic {
		return ai.DefaultAnthropicModel
	}
	if mode == codebase.ModeInteractive {
		return ai.DefaultGeminiInteractiveModel
	}
	return ai.DefaultGeminiAnalysisModel
}

// Override returns the resolution override for the selected provider. Only the Gemini host has a built-in address;
// other providers are resolved normally unless an address is configured.
func (c Config) Override() transport.EndpointOverride {
	host := ai.GeminiHost
	defaultAddress := transport.DefaultGeminiAddress
	if c.Provider == ai.ProviderAnthropic {
		host = ai.AnthropicHost
		defaultAddress = ""
	}

	switch c.ResolveAddress {
	case NoOverride:
		return transport.EndpointOverride{Host: host}
	case "":
		return transport.EndpointOverride{Host: host, Address: defaultAddress}
	default:
		return transport.EndpointOverride{Host: host, Address: c.ResolveAddress}
	}
}
