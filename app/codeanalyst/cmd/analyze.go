package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cchalm/codeanalyst/internal/codebase"
	"github.com/cchalm/codeanalyst/internal/session"
)

func newAnalyzeCommand(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Send the codebase snapshot with one instruction and print the reply",
		Long: `Sends the instruction followed by the whole codebase snapshot as a single prompt, prints
the model's reply, and exits. The snapshot must exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(app, codebase.ModeSingleShot, ioStreams{
				in:     cmd.InOrStdin(),
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}, session.Options{
				Instruction: app.config.Instruction,
			})
		},
	}
	cmd.Flags().String("prompt", "Analyze the provided codebase.", "Instruction sent before the snapshot [PROMPT]")
	return cmd
}
