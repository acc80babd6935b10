package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/scoring"
	"github.com/opensource-finance/fhi/internal/worker"
)

func writeJSONTo(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAssessment(out io.Writer, a *domain.Assessment) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "COMPOSITE\t%.2f\t%s\n", a.Result.CompositeScore, a.Tier)
	fmt.Fprintln(w, "COMPONENT\tSCORE\tCONTRIBUTION")
	exp := scoring.Explain(a.Result.Components)
	for _, c := range domain.Components {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\n", c.Label(), a.Result.Components.Get(c), exp.Contributions[c])
	}
	fmt.Fprintf(w, "Base offset\t\t%.2f\n", exp.BaseOffset)

	fmt.Fprintf(w, "\nPEERS %s\tREFERENCE\tDELTA\n", a.Benchmark.Bracket)
	fmt.Fprintf(w, "Composite\t%.2f\t%+.2f\n", a.Benchmark.Reference.CompositeScore, a.Benchmark.CompositeDelta)
	for _, c := range scoring.BenchmarkComponents {
		fmt.Fprintf(w, "%s\t%.2f\t%+.2f\n", c.Label(), a.Benchmark.Reference.Components[c], a.Benchmark.ComponentDeltas[c])
	}

	if len(a.Achievements) > 0 {
		names := make([]string, 0, len(a.Achievements))
		for _, ach := range a.Achievements {
			names = append(names, ach.Name)
		}
		fmt.Fprintf(w, "\nACHIEVEMENTS\t%s\n", strings.Join(names, ", "))
	}
	for _, warn := range a.Warnings {
		fmt.Fprintf(w, "WARNING\t%s\n", warn)
	}
	return w.Flush()
}

func printSimulation(out io.Writer, sim *domain.Simulation) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "\tBASELINE\tSCENARIO\tCHANGE")
	fmt.Fprintf(w, "Composite\t%.2f\t%.2f\t%+.2f\n",
		sim.Baseline.CompositeScore, sim.Scenario.CompositeScore, sim.CompositeChange)
	for _, c := range domain.Components {
		b, s := sim.Baseline.Components.Get(c), sim.Scenario.Components.Get(c)
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%+.2f\n", c.Label(), b, s, s-b)
	}
	fmt.Fprintf(w, "Tier\t%s\t%s\t\n",
		scoring.Tier(sim.Baseline.CompositeScore), scoring.Tier(sim.Scenario.CompositeScore))

	for _, m := range sim.Improved {
		fmt.Fprintf(w, "IMPROVED\t%s\t%+.2f\t\n", m.Component.Label(), m.Delta)
	}
	for _, m := range sim.Declined {
		fmt.Fprintf(w, "DECLINED\t%s\t%+.2f\t\n", m.Component.Label(), m.Delta)
	}
	for _, warn := range sim.Warnings {
		fmt.Fprintf(w, "WARNING\t%s\t\t\n", warn)
	}
	return w.Flush()
}

func printBatch(out io.Writer, items []worker.BatchItem) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REQUEST\tUSER\tCOMPOSITE\tTIER\tERROR")
	for _, item := range items {
		if item.Error != "" {
			fmt.Fprintf(w, "%s\t\t\t\t%s\n", item.RequestID, item.Error)
			continue
		}
		a := item.Assessment
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t\n", item.RequestID, a.UserID, a.Result.CompositeScore, a.Tier)
	}
	return w.Flush()
}
