package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cchalm/codeanalyst/internal/config"
)

// NewRootCommand builds the command tree. Each call returns an independent tree with its own configuration.
func NewRootCommand() *cobra.Command {
	app := &application{}

	rootCmd := &cobra.Command{
		Use:   "codeanalyst",
		Short: "Ask questions about a captured codebase snapshot",
		Long: `codeanalyst sends a pre-captured snapshot of a codebase (codebase_context.txt) to a large
language model and prints its answers. Use 'analyze' for a single report or 'repl' for an
interactive question session grounded in the snapshot.

Configuration is read from the environment (and a .env file in the working directory);
flags override environment values.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.loadConfig,
	}
	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		newAnalyzeCommand(app),
		newREPLCommand(app),
		newTranscriptCommand(app),
		newVersionCommand(),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCommand().Execute()
}

// application carries the configuration of one invocation to the subcommands
type application struct {
	config config.Config
}

func (app *application) loadConfig(cmd *cobra.Command, _ []string) error {
	// Load .env file
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	app.config = cfg
	return nil
}
