package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wardwatch",
	Short: "wardwatch - realtime ward monitoring in the terminal",
	Long: `wardwatch follows a clinical dashboard's realtime stream, keeps patient vitals
current, escalates emergency alerts and tracks the unacknowledged alert count.

Settings come from wardwatch.yaml, WARDWATCH_* environment variables and flags.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	bindGlobalFlags(rootCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}
