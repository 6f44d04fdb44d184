package cli

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("sentra %s (commit %s, %s)\n", version, commit, goruntime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
