package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/scoring"
)

var (
	simProfile string
	simPercent []string
	simAbs     []string
	simFormat  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compare a profile with a what-if scenario",
	Long: `Applies percentage and absolute adjustments to a baseline profile and
scores both side by side. Percentages apply first, then absolute amounts.
Net worth cannot be adjusted.

Examples:
  # Ten percent raise and 200 less spending per month
  fhi simulate --profile profile.yaml --pct monthlyIncome=10 --abs monthlyExpenses=-200`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simProfile, "profile", "", "YAML or JSON baseline profile file")
	f.StringSliceVar(&simPercent, "pct", nil, "percentage adjustment field=pct (repeatable)")
	f.StringSliceVar(&simAbs, "abs", nil, "absolute adjustment field=amount (repeatable)")
	f.StringVar(&simFormat, "format", "table", "output format: table or json")
	_ = simulateCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if simFormat != "table" && simFormat != "json" {
		return eris.Errorf("simulate: unknown format %q", simFormat)
	}

	baseline, err := loadProfile(simProfile)
	if err != nil {
		return err
	}
	delta, err := buildDelta(simPercent, simAbs)
	if err != nil {
		return err
	}

	processor, cleanup, err := newLocalProcessor(false)
	if err != nil {
		return err
	}
	defer cleanup()

	sim, err := processor.Simulate(cmd.Context(), cliTenantID, baseline, delta)
	if err != nil {
		return err
	}
	if simFormat == "json" {
		return writeJSONTo(out, sim)
	}
	return printSimulation(out, sim)
}

func buildDelta(percent, absolute []string) (domain.ScenarioDelta, error) {
	var delta domain.ScenarioDelta

	pct, err := parseAdjustments(percent)
	if err != nil {
		return delta, err
	}
	abs, err := parseAdjustments(absolute)
	if err != nil {
		return delta, err
	}
	delta = domain.ScenarioDelta{Percent: pct, Absolute: abs}

	if delta.IsZero() {
		return delta, eris.New("simulate: at least one --pct or --abs adjustment is required")
	}
	if err := scoring.ValidateDelta(delta); err != nil {
		return delta, err
	}
	return delta, nil
}
