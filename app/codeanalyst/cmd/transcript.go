package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cchalm/codeanalyst/internal/ai"
)

func newTranscriptCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript <session-id>",
		Short: "Print a saved session transcript as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.config.TranscriptDir == "" {
				return fmt.Errorf("no transcript directory configured, set --transcript-dir or CODEANALYST_TRANSCRIPT_DIR")
			}
			store := ai.NewFileSystemTranscriptStore(app.config.TranscriptDir)
			transcript, err := store.Get(args[0])
			if err != nil {
				return fmt.Errorf("failed to load transcript: %w", err)
			}
			if transcript == nil {
				return fmt.Errorf("no transcript for session %s in %s", args[0], app.config.TranscriptDir)
			}
			md, err := transcript.ToMarkdown()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
}
