package cli

import (
	"github.com/spf13/cobra"
)

var recordOpts monitorOptions

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Monitor the stream and record every received frame",
	Long: `Runs the monitor and writes each frame received from the dashboard stream to a
file, newline-delimited JSON or length-delimited protobuf, for later replay.

Examples:
  wardwatch record --out night-shift.ndjson
  wardwatch record --out night-shift.pb --format protobuf --quiet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd, recordOpts)
	},
}

func init() {
	bindMonitorFlags(recordCmd, &recordOpts)
	recordCmd.Flags().StringVar(&recordOpts.RecordPath, "out", "", "Output file (required)")
	recordCmd.Flags().StringVar(&recordOpts.Format, "format", "json", "Recording format: json|protobuf")
	recordCmd.MarkFlagRequired("out")
}
