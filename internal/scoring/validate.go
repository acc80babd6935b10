package scoring

import (
	"fmt"
	"math"

	"github.com/opensource-finance/fhi/internal/domain"
)

// Age limits accepted by the scorers.
const (
	MinAge = 18
	MaxAge = 100
)

// Overcommit tolerance: savings + expenses + debt may exceed income by 10%
// before a warning is raised.
const overcommitSlack = 1.1

// Validation is the outcome of checking a profile before scoring.
// Errors block scoring; warnings are surfaced without blocking.
type Validation struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether the profile may be scored.
func (v Validation) OK() bool {
	return len(v.Errors) == 0
}

// Err returns a *ValidationError when the validation has errors, nil otherwise.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return &ValidationError{Errors: v.Errors, Warnings: v.Warnings}
}

// Validate checks a profile for logical consistency.
func Validate(p domain.Profile) Validation {
	var v Validation

	if p.Age < MinAge || p.Age > MaxAge {
		v.Errors = append(v.Errors, fmt.Sprintf("age must be between %d and %d, got %d", MinAge, MaxAge, p.Age))
	}

	finite := true
	for _, f := range domain.MonetaryFields {
		val, _ := p.Value(f)
		switch {
		case math.IsNaN(val) || math.IsInf(val, 0):
			v.Errors = append(v.Errors, fmt.Sprintf("%s must be a finite number", f))
			finite = false
		case val < 0:
			v.Errors = append(v.Errors, fmt.Sprintf("%s must not be negative", f))
		}
	}
	if !finite {
		return v
	}

	if p.MonthlyDebtPayment > p.MonthlyIncome {
		v.Errors = append(v.Errors, "monthly debt payment exceeds monthly income")
	}

	if p.MonthlyExpenses > p.MonthlyIncome {
		v.Warnings = append(v.Warnings, "monthly expenses exceed monthly income")
	}
	if p.MonthlySavings+p.MonthlyExpenses+p.MonthlyDebtPayment > p.MonthlyIncome*overcommitSlack {
		v.Warnings = append(v.Warnings, "savings, expenses and debt payments together exceed monthly income by more than 10%")
	}

	return v
}
