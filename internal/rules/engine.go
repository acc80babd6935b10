// Package rules provides the CEL-Go based achievement engine.
package rules

import (
	"context"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/domain"
)

// Engine compiles achievement rules and evaluates them against score results.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.AchievementRule
	Program cel.Program
}

// NewEngine creates a new achievement engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("components", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("profile", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("age", cel.IntType),
	)
	if err != nil {
		return nil, eris.Wrap(err, "rules: create CEL environment")
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// Validate compiles a rule without mutating the loaded rule set.
func (e *Engine) Validate(rule *domain.AchievementRule) error {
	if rule == nil {
		return eris.New("rules: rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(rule)
	return err
}

// Load compiles and loads a single rule, replacing any rule with the same id.
func (e *Engine) Load(rule *domain.AchievementRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compile(rule)
	if err != nil {
		return err
	}
	e.compiledRules[rule.ID] = compiled
	return nil
}

// LoadAll compiles and loads every enabled rule.
func (e *Engine) LoadAll(rules []*domain.AchievementRule) error {
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if err := e.Load(r); err != nil {
			return err
		}
	}
	return nil
}

// Reload atomically replaces the loaded rule set. On a compile error the
// previous set stays in place.
func (e *Engine) Reload(rules []*domain.AchievementRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*CompiledRule, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		compiled, err := e.compile(r)
		if err != nil {
			return err
		}
		next[r.ID] = compiled
	}

	e.compiledRules = next
	return nil
}

// Input is the data an achievement expression can see.
type Input struct {
	Profile domain.Profile
	Result  domain.ScoreResult
}

func (in Input) activation() map[string]any {
	return map[string]any{
		"score":      in.Result.CompositeScore,
		"components": in.Result.Components.Map(),
		"profile":    in.Profile.Map(),
		"age":        int64(in.Profile.Age),
	}
}

// Evaluate runs every loaded rule and returns the unlocked achievements
// ordered by rule id. A rule that fails at runtime is logged and skipped.
func (e *Engine) Evaluate(ctx context.Context, in Input) ([]domain.Achievement, error) {
	rules := e.sortedRules()
	if len(rules) == 0 {
		return []domain.Achievement{}, nil
	}

	activation := in.activation()
	unlocked := make([]bool, len(rules))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			out, _, err := r.Program.Eval(activation)
			if err != nil {
				zap.L().Warn("achievement evaluation failed",
					zap.String("rule_id", r.Rule.ID),
					zap.Error(err),
				)
				return
			}
			unlocked[idx] = out == types.True
		}(i, rule)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "rules: evaluate achievements")
	}

	achievements := make([]domain.Achievement, 0, len(rules))
	for i, r := range rules {
		if unlocked[i] {
			achievements = append(achievements, domain.Achievement{RuleID: r.Rule.ID, Name: r.Rule.Name})
		}
	}
	return achievements, nil
}

func (e *Engine) sortedRules() []*CompiledRule {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, r := range e.compiledRules {
		rules = append(rules, r)
	}
	e.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool { return rules[i].Rule.ID < rules[j].Rule.ID })
	return rules
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// LoadedRules returns the loaded rules ordered by id.
func (e *Engine) LoadedRules() []*domain.AchievementRule {
	compiled := e.sortedRules()
	rules := make([]*domain.AchievementRule, 0, len(compiled))
	for _, c := range compiled {
		rules = append(rules, c.Rule)
	}
	return rules
}

// Close unloads all rules.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compile(rule *domain.AchievementRule) (*CompiledRule, error) {
	if rule.ID == "" {
		return nil, eris.New("rules: rule id is required")
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, eris.Wrapf(issues.Err(), "rules: compile rule %s", rule.ID)
	}

	if ast.OutputType() != cel.BoolType {
		return nil, eris.Errorf("rules: rule %s must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: create program for rule %s", rule.ID)
	}

	return &CompiledRule{Rule: rule, Program: program}, nil
}
