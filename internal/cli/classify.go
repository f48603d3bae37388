package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/synheart/wardwatch/internal/models"
	"github.com/synheart/wardwatch/internal/vitals"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <vital> <value>",
	Short: "Classify a vital-sign value",
	Long: `Prints the tier (normal, warning or critical) of a single value.

Examples:
  wardwatch classify hr 128
  wardwatch classify spo2 92`,
	Args: cobra.ExactArgs(2),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	status, err := classifyValue(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	return nil
}

func classifyValue(name, raw string) (models.Status, error) {
	v, err := vitals.ParseVital(name)
	if err != nil {
		return "", err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", fmt.Errorf("invalid value %q: %w", raw, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("invalid value %q: not a finite number", raw)
	}
	return vitals.Classify(value, vitals.BandFor(v)), nil
}
