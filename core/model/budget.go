package model

import (
	"fmt"
	"sort"
	"time"
)

// Budget yields the maximum grid-side power in kW a cluster may draw.
type Budget interface {
	LimitAt(ts time.Time) float64
}

// ConstantBudget is a time invariant limit in kW.
type ConstantBudget float64

// LimitAt returns the constant limit.
func (b ConstantBudget) LimitAt(time.Time) float64 { return float64(b) }

// BudgetStep sets the limit in force from From onwards.
type BudgetStep struct {
	From    time.Time
	LimitKW float64
}

// BudgetSchedule is a step function over time. The limit in force is the one
// of the latest step starting at or before ts; before the first step no power
// may be drawn.
type BudgetSchedule struct {
	steps []BudgetStep
}

// NewBudgetSchedule validates and sorts the steps.
func NewBudgetSchedule(steps ...BudgetStep) (*BudgetSchedule, error) {
	sorted := make([]BudgetStep, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })
	for i, s := range sorted {
		if s.LimitKW < 0 {
			return nil, fmt.Errorf("budget step at %s: negative limit", s.From.Format(time.RFC3339))
		}
		if i > 0 && s.From.Equal(sorted[i-1].From) {
			return nil, fmt.Errorf("budget step at %s: duplicate start", s.From.Format(time.RFC3339))
		}
	}
	return &BudgetSchedule{steps: sorted}, nil
}

// LimitAt returns the limit in force at ts.
func (s *BudgetSchedule) LimitAt(ts time.Time) float64 {
	i := sort.Search(len(s.steps), func(i int) bool { return s.steps[i].From.After(ts) })
	if i == 0 {
		return 0
	}
	return s.steps[i-1].LimitKW
}
