package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/cache"
	"github.com/opensource-finance/fhi/internal/repository"
	"github.com/opensource-finance/fhi/internal/rules"
	"github.com/opensource-finance/fhi/internal/scoring"
	"github.com/opensource-finance/fhi/internal/worker"
)

// cliTenantID scopes cache entries and saved assessments written by the CLI.
const cliTenantID = "cli"

var (
	scoreProfile     string
	scoreBatch       string
	scoreUser        string
	scoreFormat      string
	scoreConcurrency int
	scoreLimit       int
	scoreSave        bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a financial profile",
	Long: `Scores a YAML or JSON profile file, or every row of a CSV file.

Examples:
  # Score one profile
  fhi score --profile profile.yaml

  # Score a CSV batch with 16 workers and print JSON
  fhi score --batch profiles.csv --concurrency 16 --format json

  # Score and store the assessment in the configured repository
  fhi score --profile profile.yaml --user u-123 --save`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreProfile, "profile", "", "YAML or JSON profile file")
	f.StringVar(&scoreBatch, "batch", "", "CSV file with one profile per row")
	f.StringVar(&scoreUser, "user", "", "user id recorded on the assessment")
	f.StringVar(&scoreFormat, "format", "table", "output format: table or json")
	f.IntVar(&scoreConcurrency, "concurrency", worker.DefaultConcurrency, "batch scoring workers")
	f.IntVar(&scoreLimit, "limit", 0, "maximum CSV rows to score (0 = all)")
	f.BoolVar(&scoreSave, "save", false, "persist assessments to the configured repository")
	scoreCmd.MarkFlagsMutuallyExclusive("profile", "batch")
	scoreCmd.MarkFlagsOneRequired("profile", "batch")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if scoreFormat != "table" && scoreFormat != "json" {
		return eris.Errorf("score: unknown format %q", scoreFormat)
	}

	processor, cleanup, err := newLocalProcessor(scoreSave)
	if err != nil {
		return err
	}
	defer cleanup()

	if scoreBatch != "" {
		reqs, err := loadProfilesCSV(scoreBatch, scoreLimit)
		if err != nil {
			return err
		}
		items, err := worker.ScoreBatch(ctx, processor, cliTenantID, reqs, scoreConcurrency)
		if err != nil {
			return err
		}
		zap.L().Debug("batch scored", zap.Int("count", len(items)))
		if scoreFormat == "json" {
			return writeJSONTo(out, items)
		}
		return printBatch(out, items)
	}

	profile, err := loadProfile(scoreProfile)
	if err != nil {
		return err
	}
	a, err := processor.Assess(ctx, cliTenantID, scoreUser, profile)
	if err != nil {
		if ve, ok := scoring.AsValidationError(err); ok && scoreFormat == "json" {
			_ = writeJSONTo(out, scoring.Validation{Errors: ve.Errors, Warnings: ve.Warnings})
		}
		return err
	}
	if scoreFormat == "json" {
		return writeJSONTo(out, a)
	}
	return printAssessment(out, a)
}

// newLocalProcessor builds an in-process processor with the built-in
// achievements and a memory cache. With persist set, assessments are
// written to the configured repository.
func newLocalProcessor(persist bool) (*assessment.Processor, func(), error) {
	engine, err := rules.NewEngine(scoreConcurrency)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init achievement engine")
	}
	if err := engine.LoadAll(rules.BuiltinAchievements(cliTenantID)); err != nil {
		return nil, nil, eris.Wrap(err, "load achievements")
	}

	size := cfg.Cache.LocalMaxSize
	if size <= 0 {
		size = 1000
	}
	opts := []assessment.Option{
		assessment.WithAchievements(engine),
		assessment.WithCache(cache.NewLRUCache(size), cfg.Cache.ResultTTL),
	}
	cleanup := func() { _ = engine.Close() }

	if persist {
		repo, err := repository.New(cfg.Repository)
		if err != nil {
			cleanup()
			return nil, nil, eris.Wrap(err, "init repository")
		}
		opts = append(opts, assessment.WithRepository(repo))
		cleanup = func() {
			_ = repo.Close()
			_ = engine.Close()
		}
	}

	return assessment.NewProcessor(opts...), cleanup, nil
}
