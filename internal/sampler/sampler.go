// Package sampler selects a deterministic, month-stratified subset of a
// player's match refs when the history is too large to analyze in full.
package sampler

import (
	"sort"
	"time"

	"github.com/pable/rift-rewind/internal/model"
)

type tier struct {
	max     int // inclusive upper bound on total refs; 0 means unbounded
	percent int
	label   string
}

var tiers = []tier{
	{100, 100, "complete"},
	{300, 50, "high"},
	{500, 35, "balanced"},
	{800, 25, "efficient"},
	{0, 20, "optimized"},
}

func tierFor(total int) tier {
	for _, t := range tiers {
		if t.max == 0 || total <= t.max {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// Percentage returns the fraction of refs selected for a history of the given size.
func Percentage(total int) float64 { return float64(tierFor(total).percent) / 100 }

// TierLabel names the sampling tier for a history of the given size.
func TierLabel(total int) string { return tierFor(total).label }

// Confidence labels how much a sample of n matches can be trusted.
func Confidence(n int) string {
	switch {
	case n >= 200:
		return "very high"
	case n >= 100:
		return "high"
	case n >= 50:
		return "good"
	case n >= 30:
		return "moderate"
	default:
		return "fair"
	}
}

// Plan samples refs using the wall clock for refs without a timestamp.
func Plan(refs []string) model.SamplingPlan {
	return PlanAt(refs, time.Now())
}

// PlanAt is Plan with an explicit clock. The same refs and clock always
// produce the same plan.
func PlanAt(refs []string, now time.Time) model.SamplingPlan {
	total := len(refs)
	t := tierFor(total)
	plan := model.SamplingPlan{
		TotalCount:   total,
		SelectedRefs: []string{},
		Percentage:   float64(t.percent) / 100,
		TierLabel:    t.label,
		PerMonth:     map[string]model.MonthSample{},
	}
	if total == 0 {
		plan.ConfidenceLabel = Confidence(0)
		return plan
	}

	target := total * t.percent / 100

	byMonth := make(map[string][]string)
	for _, r := range refs {
		k := model.MonthKey(r, now)
		byMonth[k] = append(byMonth[k], r)
	}
	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	sort.Strings(months)

	for _, k := range months {
		group := byMonth[k]
		n := len(group)
		sel := target * n / total
		if sel < 1 {
			sel = 1
		}
		if sel > n {
			sel = n
		}
		plan.SelectedRefs = append(plan.SelectedRefs, spread(group, sel)...)
		plan.PerMonth[k] = model.MonthSample{Total: n, Selected: sel}
	}

	plan.SelectedCount = len(plan.SelectedRefs)
	plan.ConfidenceLabel = Confidence(plan.SelectedCount)
	return plan
}

// spread picks sel evenly spaced elements of group, keeping their order.
func spread(group []string, sel int) []string {
	n := len(group)
	if sel >= n {
		return append([]string(nil), group...)
	}
	out := make([]string, 0, sel)
	for i := 0; i < sel; i++ {
		out = append(out, group[i*n/sel])
	}
	return out
}
