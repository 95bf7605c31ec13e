package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionInfo = struct {
	Version   string
	GitCommit string
	BuildTime string
}{
	Version:   "dev",
	GitCommit: "unknown",
	BuildTime: "unknown",
}

// SetVersionInfo records build information set by ldflags
func SetVersionInfo(version, gitCommit, buildTime string) {
	versionInfo.Version = version
	versionInfo.GitCommit = gitCommit
	versionInfo.BuildTime = buildTime
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codeanalyst %s (commit %s, built %s)\n",
				versionInfo.Version, versionInfo.GitCommit, versionInfo.BuildTime)
		},
	}
}
