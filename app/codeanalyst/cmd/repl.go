package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cchalm/codeanalyst/internal/codebase"
	"github.com/cchalm/codeanalyst/internal/session"
)

func newREPLCommand(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repl",
		Aliases: []string{"chat"},
		Short:   "Start an interactive question session about the codebase snapshot",
		Long: `Loads the codebase snapshot into a new conversation, then answers one question per line.
Type 'exit' or 'quit', press Ctrl-D, or interrupt with Ctrl-C to end the session. Without a
snapshot the session still starts and answers general questions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := session.ParseErrorPolicy(app.config.OnError)
			if err != nil {
				return err
			}
			return runSession(app, codebase.ModeInteractive, ioStreams{
				in:     cmd.InOrStdin(),
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}, session.Options{
				Project:     projectName(app.config.Project),
				ErrorPolicy: policy,
			})
		},
	}
	cmd.Flags().String("project", "", "Project name used in the priming turn; defaults to the working directory name [CODEANALYST_PROJECT]")
	cmd.Flags().String("on-error", "terminate", "After a failed turn: terminate the session or continue [CODEANALYST_ON_ERROR]")
	return cmd
}

func projectName(configured string) string {
	if configured != "" {
		return configured
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Base(wd)
}
