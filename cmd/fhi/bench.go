package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/opensource-finance/fhi/internal/api"
	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
)

var (
	benchCSV         string
	benchURL         string
	benchTenant      string
	benchConcurrency int
	benchRPS         float64
	benchRepeat      int
	benchLimit       int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test a running service with CSV profiles",
	Long: `Posts every CSV profile to POST /score, each one --repeat times, and
reports latency percentiles and throughput. A profile that comes back with a
different composite score on a repeat is counted as a determinism mismatch
and fails the run.

Examples:
  fhi bench --csv profiles.csv --url http://localhost:8080 --concurrency 20 --rps 200`,
	RunE: runBenchCmd,
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchCSV, "csv", "", "CSV file with one profile per row")
	f.StringVar(&benchURL, "url", "http://localhost:8080", "service base URL")
	f.StringVar(&benchTenant, "tenant", "benchmark-test", "tenant ID for requests")
	f.IntVar(&benchConcurrency, "concurrency", 10, "concurrent requests")
	f.Float64Var(&benchRPS, "rps", 0, "request rate limit (0 = unlimited)")
	f.IntVar(&benchRepeat, "repeat", 2, "times each profile is sent")
	f.IntVar(&benchLimit, "limit", 0, "maximum CSV rows (0 = all)")
	_ = benchCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(benchCmd)
}

func runBenchCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client := &http.Client{Timeout: 10 * time.Second}

	reqs, err := loadProfilesCSV(benchCSV, benchLimit)
	if err != nil {
		return err
	}
	if err := checkHealth(ctx, client, benchURL); err != nil {
		return eris.Wrapf(err, "bench: service not reachable at %s", benchURL)
	}

	report, err := runBench(ctx, client, benchConfig{
		URL:         benchURL,
		Tenant:      benchTenant,
		Concurrency: benchConcurrency,
		RPS:         benchRPS,
		Repeat:      benchRepeat,
	}, reqs)
	if err != nil {
		return err
	}

	if err := printBenchReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Mismatches > 0 {
		return eris.Errorf("bench: %d determinism mismatches", report.Mismatches)
	}
	return nil
}

type benchConfig struct {
	URL         string
	Tenant      string
	Concurrency int
	RPS         float64
	Repeat      int
}

type benchReport struct {
	Sent       int
	OK         int
	Rejected   int
	Errors     int
	Mismatches int
	Latencies  []time.Duration
	Tiers      map[domain.HealthTier]int
	Duration   time.Duration
}

// Percentile returns the p-th latency percentile (0 < p <= 100).
func (r *benchReport) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), r.Latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted))*p/100+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// runBench sends each request cfg.Repeat times and tallies the outcomes.
func runBench(ctx context.Context, client *http.Client, cfg benchConfig, reqs []assessment.ScoreRequest) (*benchReport, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Repeat <= 0 {
		cfg.Repeat = 1
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	limiter := rate.NewLimiter(limit, max(1, int(cfg.RPS)))

	report := &benchReport{Tiers: make(map[domain.HealthTier]int)}
	first := make(map[int]float64, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	start := time.Now()
	for round := 0; round < cfg.Repeat; round++ {
		for i, req := range reqs {
			i, req := i, req
			if err := limiter.Wait(gctx); err != nil {
				break
			}
			g.Go(func() error {
				began := time.Now()
				status, resp, err := postScore(gctx, client, cfg, req)
				elapsed := time.Since(began)

				mu.Lock()
				defer mu.Unlock()

				report.Sent++
				report.Latencies = append(report.Latencies, elapsed)
				switch {
				case err != nil:
					report.Errors++
					zap.L().Debug("bench request failed", zap.String("request_id", req.RequestID), zap.Error(err))
				case status == http.StatusUnprocessableEntity:
					report.Rejected++
				case status != http.StatusOK:
					report.Errors++
				default:
					report.OK++
					report.Tiers[resp.Tier]++
					if prev, seen := first[i]; !seen {
						first[i] = resp.Result.CompositeScore
					} else if prev != resp.Result.CompositeScore {
						report.Mismatches++
					}
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "bench: run")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "bench: run")
	}
	report.Duration = time.Since(start)
	return report, nil
}

func postScore(ctx context.Context, client *http.Client, cfg benchConfig, req assessment.ScoreRequest) (int, *api.ScoreResponse, error) {
	body, err := json.Marshal(api.ScoreRequest{UserID: req.UserID, Profile: req.Profile})
	if err != nil {
		return 0, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(api.TenantIDHeader, cfg.Tenant)
	if req.RequestID != "" {
		httpReq.Header.Set(api.RequestIDHeader, req.RequestID)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}

	var result api.ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, &result, nil
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func printBenchReport(out io.Writer, r *benchReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Sent\t%d\n", r.Sent)
	fmt.Fprintf(w, "OK\t%d\n", r.OK)
	fmt.Fprintf(w, "Rejected (422)\t%d\n", r.Rejected)
	fmt.Fprintf(w, "Errors\t%d\n", r.Errors)
	fmt.Fprintf(w, "Determinism mismatches\t%d\n", r.Mismatches)

	fmt.Fprintf(w, "\nDuration\t%v\n", r.Duration.Round(time.Millisecond))
	if r.Duration > 0 {
		fmt.Fprintf(w, "Throughput\t%.2f req/sec\n", float64(r.Sent)/r.Duration.Seconds())
	}
	fmt.Fprintf(w, "p50\t%v\n", r.Percentile(50))
	fmt.Fprintf(w, "p95\t%v\n", r.Percentile(95))
	fmt.Fprintf(w, "p99\t%v\n", r.Percentile(99))

	tiers := []domain.HealthTier{domain.TierCritical, domain.TierFragile, domain.TierStable, domain.TierHealthy, domain.TierThriving}
	fmt.Fprintln(w, "\nTIER\tCOUNT")
	for _, t := range tiers {
		fmt.Fprintf(w, "%s\t%d\n", t, r.Tiers[t])
	}
	return w.Flush()
}
