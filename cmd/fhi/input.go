package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
)

// profileRow is one CSV line of a batch or bench input file.
type profileRow struct {
	RequestID string `csv:"request_id,omitempty"`
	UserID    string `csv:"user_id,omitempty"`
	domain.Profile
}

// loadProfile reads a YAML or JSON profile file.
func loadProfile(path string) (domain.Profile, error) {
	var p domain.Profile

	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "read profile %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, eris.Wrapf(err, "parse profile %s", path)
	}
	return p, nil
}

// loadProfilesCSV reads score requests from a CSV file with a header row.
// Rows without a request_id are numbered from 1.
func loadProfilesCSV(path string, limit int) ([]assessment.ScoreRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read csv %s", path)
	}

	var rows []profileRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "parse csv %s", path)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	reqs := make([]assessment.ScoreRequest, len(rows))
	for i, r := range rows {
		id := r.RequestID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		reqs[i] = assessment.ScoreRequest{RequestID: id, UserID: r.UserID, Profile: r.Profile}
	}
	return reqs, nil
}

// parseAdjustments parses field=value pairs such as "monthlyIncome=10".
func parseAdjustments(pairs []string) (map[domain.Field]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[domain.Field]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, eris.Errorf("adjustment %q must be field=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "adjustment %q", pair)
		}
		out[domain.Field(strings.TrimSpace(name))] = v
	}
	return out, nil
}
