package scoring

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fhi/internal/domain"
)

// fixtureProfile is the regression fixture used across the engine tests.
func fixtureProfile() domain.Profile {
	return domain.Profile{
		Age:                24,
		MonthlyIncome:      50000,
		MonthlyExpenses:    30000,
		MonthlySavings:     10000,
		MonthlyDebtPayment: 5000,
		TotalInvestments:   100000,
		NetWorth:           200000,
		EmergencyFund:      60000,
	}
}

func TestWeights(t *testing.T) {
	assert.InDelta(t, 0.85, Weights.Sum(), 1e-12)
	assert.Equal(t, 15.0, Weights.BaseOffset)
	assert.Equal(t, 0.0, Weights.Get(domain.Component("unknown")))
}

func TestMultipliersFor(t *testing.T) {
	tests := []struct {
		age  int
		want AgeMultipliers
	}{
		{18, AgeMultipliers{2.5, 2.0}},
		{29, AgeMultipliers{2.5, 2.0}},
		{30, AgeMultipliers{3.0, 3.0}},
		{39, AgeMultipliers{3.0, 3.0}},
		{40, AgeMultipliers{3.5, 4.0}},
		{49, AgeMultipliers{3.5, 4.0}},
		{50, AgeMultipliers{4.0, 5.0}},
		{100, AgeMultipliers{4.0, 5.0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MultipliersFor(tt.age), "age %d", tt.age)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid fixture", func(t *testing.T) {
		v := Validate(fixtureProfile())
		assert.True(t, v.OK())
		assert.Empty(t, v.Warnings)
		assert.NoError(t, v.Err())
	})

	t.Run("debt exceeds income", func(t *testing.T) {
		v := Validate(domain.Profile{Age: 30, MonthlyIncome: 20000, MonthlyDebtPayment: 25000})
		require.False(t, v.OK())
		assert.Contains(t, v.Errors, "monthly debt payment exceeds monthly income")
	})

	t.Run("age out of range", func(t *testing.T) {
		for _, age := range []int{0, 17, 101} {
			v := Validate(domain.Profile{Age: age, MonthlyIncome: 1000})
			assert.False(t, v.OK(), "age %d", age)
		}
	})

	t.Run("negative and non-finite values", func(t *testing.T) {
		v := Validate(domain.Profile{Age: 30, MonthlyIncome: 1000, NetWorth: -5})
		require.Len(t, v.Errors, 1)
		assert.Contains(t, v.Errors[0], "netWorth")

		v = Validate(domain.Profile{Age: 30, MonthlyIncome: math.NaN()})
		assert.False(t, v.OK())

		v = Validate(domain.Profile{Age: 30, MonthlyIncome: 1000, EmergencyFund: math.Inf(1)})
		assert.False(t, v.OK())
	})

	t.Run("expenses exceed income warns", func(t *testing.T) {
		v := Validate(domain.Profile{Age: 30, MonthlyIncome: 1000, MonthlyExpenses: 1200})
		assert.True(t, v.OK())
		assert.Contains(t, v.Warnings, "monthly expenses exceed monthly income")
	})

	t.Run("overcommitment slack", func(t *testing.T) {
		// 500 + 400 + 200 = 1100 == 1000 * 1.1: within tolerance.
		v := Validate(domain.Profile{Age: 30, MonthlyIncome: 1000, MonthlySavings: 500, MonthlyExpenses: 400, MonthlyDebtPayment: 200})
		assert.Empty(t, v.Warnings)

		v = Validate(domain.Profile{Age: 30, MonthlyIncome: 1000, MonthlySavings: 501, MonthlyExpenses: 400, MonthlyDebtPayment: 200})
		assert.True(t, v.OK())
		assert.Len(t, v.Warnings, 1)
	})
}

func TestComponentScorers(t *testing.T) {
	p := fixtureProfile()

	assert.InDelta(t, 200000.0/1500000.0*100, NetWorthScore(p), 1e-9)
	assert.InDelta(t, 90, DebtToIncomeScore(p), 1e-9)
	assert.InDelta(t, 20, SavingsRateScore(p), 1e-9)
	assert.InDelta(t, 100000.0/1200000.0*100, InvestmentScore(p), 1e-9)
	assert.InDelta(t, 100.0/3.0, EmergencyFundScore(p), 1e-9)
}

func TestComponentZeroPolicies(t *testing.T) {
	tests := []struct {
		name    string
		profile domain.Profile
		scorer  func(domain.Profile) float64
		want    float64
	}{
		{"net worth zero income", domain.Profile{Age: 30, NetWorth: 1e6}, NetWorthScore, 0},
		{"investment zero income", domain.Profile{Age: 30, TotalInvestments: 1e6}, InvestmentScore, 0},
		{"savings zero income", domain.Profile{Age: 30, MonthlySavings: 500}, SavingsRateScore, 0},
		{"dti zero income zero debt", domain.Profile{Age: 30}, DebtToIncomeScore, 100},
		{"dti zero income with debt", domain.Profile{Age: 30, MonthlyDebtPayment: 10}, DebtToIncomeScore, 0},
		{"emergency zero expenses with fund", domain.Profile{Age: 30, EmergencyFund: 1}, EmergencyFundScore, 100},
		{"emergency zero expenses no fund", domain.Profile{Age: 30}, EmergencyFundScore, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scorer(tt.profile))
		})
	}
}

func TestComponentClamping(t *testing.T) {
	rich := domain.Profile{
		Age:                35,
		MonthlyIncome:      1000,
		MonthlyExpenses:    10,
		MonthlySavings:     5000,
		MonthlyDebtPayment: 0,
		TotalInvestments:   1e9,
		NetWorth:           1e9,
		EmergencyFund:      1e9,
	}
	s := ScoreComponents(rich)
	assert.Equal(t, 100.0, s.NetWorth)
	assert.Equal(t, 100.0, s.DebtToIncome)
	assert.Equal(t, 100.0, s.SavingsRate)
	assert.Equal(t, 100.0, s.Investment)
	assert.Equal(t, 100.0, s.EmergencyFund)

	// Debt far beyond income bottoms out at zero.
	assert.Equal(t, 0.0, DebtToIncomeScore(domain.Profile{Age: 30, MonthlyIncome: 100, MonthlyDebtPayment: 1e9}))
}

func TestScoreFixture(t *testing.T) {
	result, v, err := Score(fixtureProfile())
	require.NoError(t, err)
	assert.Empty(t, v.Warnings)

	c := result.Components
	assert.InDelta(t, 90, c.DebtToIncome, 1e-9)
	assert.InDelta(t, 20, c.SavingsRate, 1e-9)
	assert.InDelta(t, 100.0/3.0, c.EmergencyFund, 1e-9)

	want := 0.20*c.NetWorth + 0.15*c.DebtToIncome + 0.15*c.SavingsRate + 0.15*c.Investment + 0.20*c.EmergencyFund + 15
	assert.InDelta(t, want, result.CompositeScore, 1e-9)
	assert.InDelta(t, 42.0833333333, result.CompositeScore, 1e-6)
	assert.Equal(t, domain.TierFragile, Tier(result.CompositeScore))
}

func TestScoreRejectsInvalidProfile(t *testing.T) {
	result, v, err := Score(domain.Profile{Age: 30, MonthlyIncome: 20000, MonthlyDebtPayment: 25000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
	assert.NotEmpty(t, v.Errors)
	assert.Equal(t, domain.ScoreResult{}, result)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, v.Errors, ve.Errors)
}

func TestScoreZeroIncome(t *testing.T) {
	result, _, err := Score(domain.Profile{Age: 45, MonthlyExpenses: 800, NetWorth: 5e5, TotalInvestments: 1e5, EmergencyFund: 2400})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Components.NetWorth)
	assert.Equal(t, 0.0, result.Components.SavingsRate)
	assert.Equal(t, 0.0, result.Components.Investment)
	assert.Equal(t, 100.0, result.Components.DebtToIncome)
	assert.InDelta(t, 50, result.Components.EmergencyFund, 1e-9)
}

func randomProfile(r *rand.Rand) domain.Profile {
	income := r.Float64() * 20000
	if r.IntN(10) == 0 {
		income = 0
	}
	return domain.Profile{
		Age:                MinAge + r.IntN(MaxAge-MinAge+1),
		MonthlyIncome:      income,
		MonthlyExpenses:    r.Float64() * 25000,
		MonthlySavings:     r.Float64() * 10000,
		MonthlyDebtPayment: r.Float64() * income,
		TotalInvestments:   r.Float64() * 5e6,
		NetWorth:           r.Float64() * 1e7,
		EmergencyFund:      r.Float64() * 1e5,
	}
}

func TestRangeInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		p := randomProfile(r)
		result, _, err := Score(p)
		require.NoError(t, err, "profile %+v", p)

		for _, c := range domain.Components {
			v := result.Components.Get(c)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
		assert.GreaterOrEqual(t, result.CompositeScore, 15.0)
		assert.LessOrEqual(t, result.CompositeScore, 100.0+1e-9)
	}
}

func TestDeterminism(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 200; i++ {
		p := randomProfile(r)
		first, _, _ := Score(p)
		second, _, _ := Score(p)
		assert.Equal(t, math.Float64bits(first.CompositeScore), math.Float64bits(second.CompositeScore))
		assert.Equal(t, first, second)
	}
}

func TestExplainReconstructsComposite(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		result, _, err := Score(randomProfile(r))
		require.NoError(t, err)

		exp := Explain(result.Components)
		assert.Len(t, exp.Contributions, len(domain.Components))
		assert.Equal(t, 15.0, exp.BaseOffset)
		assert.InDelta(t, result.CompositeScore, exp.WeightedTotal+exp.BaseOffset, 1e-9)
	}

	exp := Explain(domain.ComponentScores{NetWorth: 50, EmergencyFund: 100})
	assert.InDelta(t, 10, exp.Contributions[domain.ComponentNetWorth], 1e-12)
	assert.InDelta(t, 20, exp.Contributions[domain.ComponentEmergencyFund], 1e-12)
	assert.InDelta(t, 30, exp.WeightedTotal, 1e-12)
}

func TestTopMovers(t *testing.T) {
	baseline := domain.ComponentScores{NetWorth: 40, DebtToIncome: 60, SavingsRate: 50, Investment: 30, EmergencyFund: 20}
	scenario := domain.ComponentScores{NetWorth: 45, DebtToIncome: 55, SavingsRate: 50, Investment: 20, EmergencyFund: 40}

	improved, declined := TopMovers(baseline, scenario, 2)
	assert.Equal(t, []domain.Mover{
		{Component: domain.ComponentEmergencyFund, Delta: 20},
		{Component: domain.ComponentNetWorth, Delta: 5},
	}, improved)
	assert.Equal(t, []domain.Mover{
		{Component: domain.ComponentInvestment, Delta: -10},
		{Component: domain.ComponentDebtToIncome, Delta: -5},
	}, declined)

	t.Run("truncation", func(t *testing.T) {
		improved, declined := TopMovers(baseline, scenario, 1)
		require.Len(t, improved, 1)
		require.Len(t, declined, 1)
		assert.Equal(t, domain.ComponentEmergencyFund, improved[0].Component)
		assert.Equal(t, domain.ComponentInvestment, declined[0].Component)
	})

	t.Run("ties keep enumeration order", func(t *testing.T) {
		flat := domain.ComponentScores{}
		up := domain.ComponentScores{SavingsRate: 10, NetWorth: 10, EmergencyFund: 10}
		improved, declined := TopMovers(flat, up, 2)
		assert.Equal(t, []domain.Mover{
			{Component: domain.ComponentNetWorth, Delta: 10},
			{Component: domain.ComponentSavingsRate, Delta: 10},
		}, improved)
		assert.Empty(t, declined)
	})

	t.Run("non-positive k", func(t *testing.T) {
		improved, declined := TopMovers(baseline, scenario, 0)
		assert.Empty(t, improved)
		assert.Empty(t, declined)
	})
}

func TestApplyScenario(t *testing.T) {
	base := fixtureProfile()

	t.Run("no-op delta", func(t *testing.T) {
		assert.Equal(t, base, ApplyScenario(base, domain.ScenarioDelta{}))
		assert.Equal(t, base, ApplyScenario(base, domain.ScenarioDelta{
			Percent:  map[domain.Field]float64{domain.FieldMonthlyIncome: 0},
			Absolute: map[domain.Field]float64{domain.FieldMonthlyExpenses: 0},
		}))
	})

	t.Run("percent then absolute", func(t *testing.T) {
		got := ApplyScenario(base, domain.ScenarioDelta{
			Percent:  map[domain.Field]float64{domain.FieldMonthlyIncome: 10},
			Absolute: map[domain.Field]float64{domain.FieldMonthlyIncome: -1000, domain.FieldEmergencyFund: 500},
		})
		assert.InDelta(t, 54000, got.MonthlyIncome, 1e-9)
		assert.InDelta(t, 60500, got.EmergencyFund, 1e-9)
		assert.Equal(t, base.MonthlyExpenses, got.MonthlyExpenses)
		// Baseline untouched.
		assert.Equal(t, 50000.0, base.MonthlyIncome)
	})

	t.Run("non-negative floor", func(t *testing.T) {
		delta := domain.ScenarioDelta{
			Percent:  map[domain.Field]float64{},
			Absolute: map[domain.Field]float64{},
		}
		for _, f := range AdjustableFields {
			delta.Percent[f] = -100
			delta.Absolute[f] = -1e12
		}
		got := ApplyScenario(base, delta)
		for _, f := range domain.MonetaryFields {
			v, _ := got.Value(f)
			assert.GreaterOrEqual(t, v, 0.0, "field %s", f)
		}
		assert.Equal(t, 0.0, got.MonthlyIncome)

		got = ApplyScenario(base, domain.ScenarioDelta{Percent: map[domain.Field]float64{domain.FieldMonthlySavings: -250}})
		assert.Equal(t, 0.0, got.MonthlySavings)
	})

	t.Run("net worth and age are invariant", func(t *testing.T) {
		got := ApplyScenario(base, domain.ScenarioDelta{
			Percent:  map[domain.Field]float64{domain.FieldNetWorth: 50, "age": 10},
			Absolute: map[domain.Field]float64{domain.FieldNetWorth: 1e6},
		})
		assert.Equal(t, base.NetWorth, got.NetWorth)
		assert.Equal(t, base.Age, got.Age)
	})

	t.Run("non-finite adjustments count as zero", func(t *testing.T) {
		zeroSavings := base
		zeroSavings.MonthlySavings = 0
		got := ApplyScenario(zeroSavings, domain.ScenarioDelta{
			Percent:  map[domain.Field]float64{domain.FieldMonthlySavings: math.Inf(1), domain.FieldMonthlyIncome: math.NaN()},
			Absolute: map[domain.Field]float64{domain.FieldEmergencyFund: math.Inf(-1)},
		})
		assert.Equal(t, 0.0, got.MonthlySavings)
		assert.Equal(t, base.MonthlyIncome, got.MonthlyIncome)
		assert.Equal(t, base.EmergencyFund, got.EmergencyFund)
	})

	t.Run("percentages beyond ui bounds", func(t *testing.T) {
		got := ApplyScenario(base, domain.ScenarioDelta{Percent: map[domain.Field]float64{domain.FieldTotalInvestments: 250}})
		assert.InDelta(t, 350000, got.TotalInvestments, 1e-9)
	})
}

func TestValidateDelta(t *testing.T) {
	assert.NoError(t, ValidateDelta(domain.ScenarioDelta{}))
	assert.NoError(t, ValidateDelta(domain.ScenarioDelta{Percent: map[domain.Field]float64{domain.FieldMonthlyIncome: -500}}))

	err := ValidateDelta(domain.ScenarioDelta{
		Percent:  map[domain.Field]float64{domain.FieldNetWorth: 5, "salary": 1},
		Absolute: map[domain.Field]float64{domain.FieldMonthlySavings: math.Inf(-1)},
	})
	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Errors, 3)
}

func TestSimulate(t *testing.T) {
	base := fixtureProfile()

	t.Run("improving scenario", func(t *testing.T) {
		sim, err := Simulate(base, domain.ScenarioDelta{
			Absolute: map[domain.Field]float64{domain.FieldEmergencyFund: 120000},
		})
		require.NoError(t, err)
		assert.Equal(t, 100.0, sim.Scenario.Components.EmergencyFund)
		assert.Greater(t, sim.CompositeChange, 0.0)
		require.Len(t, sim.Improved, 1)
		assert.Equal(t, domain.ComponentEmergencyFund, sim.Improved[0].Component)
		assert.Empty(t, sim.Declined)
		assert.Equal(t, base, sim.BaselineProfile)
	})

	t.Run("no-op scenario matches baseline", func(t *testing.T) {
		sim, err := Simulate(base, domain.ScenarioDelta{})
		require.NoError(t, err)
		assert.Equal(t, sim.Baseline, sim.Scenario)
		assert.Equal(t, 0.0, sim.CompositeChange)
	})

	t.Run("invalid baseline", func(t *testing.T) {
		_, err := Simulate(domain.Profile{Age: 30, MonthlyIncome: 100, MonthlyDebtPayment: 200}, domain.ScenarioDelta{})
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("scenario that breaks validation", func(t *testing.T) {
		_, err := Simulate(base, domain.ScenarioDelta{Percent: map[domain.Field]float64{domain.FieldMonthlyIncome: -95}})
		require.Error(t, err)
		ve, ok := AsValidationError(err)
		require.True(t, ok)
		assert.Contains(t, ve.Errors[0], "scenario:")
	})
}

func TestBenchmark(t *testing.T) {
	tests := []struct {
		age     int
		bracket string
	}{
		{18, "18-25"},
		{25, "18-25"},
		{26, "26-35"},
		{35, "26-35"},
		{36, "36-50"},
		{50, "36-50"},
		{51, "50+"},
		{100, "50+"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bracket, PeerBracket(tt.age), "age %d", tt.age)
	}

	result, _, err := Score(fixtureProfile())
	require.NoError(t, err)

	cmp := Benchmark(24, result)
	assert.Equal(t, "18-25", cmp.Bracket)
	assert.InDelta(t, result.CompositeScore-45, cmp.CompositeDelta, 1e-9)
	assert.InDelta(t, 10, cmp.ComponentDeltas[domain.ComponentSavingsRate], 1e-9)
	assert.InDelta(t, 10, cmp.ComponentDeltas[domain.ComponentDebtToIncome], 1e-9)
	assert.InDelta(t, 100.0/3.0-25, cmp.ComponentDeltas[domain.ComponentEmergencyFund], 1e-9)
	assert.Len(t, cmp.ComponentDeltas, len(BenchmarkComponents))

	// Reproducible and independent of the shared table.
	cmp.Reference.Components[domain.ComponentSavingsRate] = -1
	again := Benchmark(24, result)
	assert.Equal(t, 10.0, again.Reference.Components[domain.ComponentSavingsRate])
}

func TestTier(t *testing.T) {
	assert.Equal(t, domain.TierCritical, Tier(15))
	assert.Equal(t, domain.TierFragile, Tier(40))
	assert.Equal(t, domain.TierStable, Tier(55))
	assert.Equal(t, domain.TierHealthy, Tier(84.99))
	assert.Equal(t, domain.TierThriving, Tier(85))
	assert.Equal(t, domain.TierThriving, Tier(100))
}
