package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizbox/internal/store"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quizbox version and snapshot format",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "quizbox %s (snapshot format v%d, %s/%s)\n",
			version, store.CurrentVersion, runtime.GOOS, runtime.GOARCH)
	},
}
