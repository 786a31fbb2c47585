package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityHashIsCaseAndWhitespaceInsensitive(t *testing.T) {
	a := NewIdentity("Faker", "KR1", "KR")
	b := NewIdentity("  faker ", " kr1", "kr  ")
	assert.Equal(t, a, b)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)

	// Hash normalizes even when the struct was built by hand.
	raw := Identity{Name: "FAKER", Tag: "kr1", Region: "Kr"}
	assert.Equal(t, a.Hash(), raw.Hash())

	other := NewIdentity("Faker", "KR2", "kr")
	assert.NotEqual(t, a.Hash(), other.Hash())
}

func TestIdentityValidate(t *testing.T) {
	cases := []struct {
		name string
		id   Identity
		ok   bool
	}{
		{"valid", NewIdentity("Doublelift", "NA1", "na1"), true},
		{"short name", NewIdentity("ab", "NA1", "na1"), false},
		{"long name", NewIdentity("abcdefghijklmnopq", "NA1", "na1"), false},
		{"short tag", NewIdentity("Doublelift", "N", "na1"), false},
		{"long tag", NewIdentity("Doublelift", "NA1234", "na1"), false},
		{"unknown region", NewIdentity("Doublelift", "NA1", "moon1"), false},
		{"empty region", NewIdentity("Doublelift", "NA1", ""), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.id.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRegionalRouting(t *testing.T) {
	assert.Equal(t, "americas", NewIdentity("x", "y", "NA1").Regional())
	assert.Equal(t, "europe", NewIdentity("x", "y", "euw1").Regional())
	assert.Equal(t, "asia", NewIdentity("x", "y", "kr").Regional())
	assert.Equal(t, "sea", NewIdentity("x", "y", "vn2").Regional())
	for _, r := range Regions {
		assert.Equal(t, PlatformToRegional[r.Value], r.Regional, r.Value)
	}
}

func TestMonthKey(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	// 2024-01-01T00:00:00Z
	assert.Equal(t, "2024-01", MonthKey("NA1_1704067200000", now))
	assert.Equal(t, "2025-03", MonthKey("garbage", now))
	assert.Equal(t, "2025-03", MonthKey("NA1_", now))
	assert.Equal(t, "2025-03", MonthKey("NA1_notanumber", now))

	ts, ok := RefTime("EUW1_1704067200000")
	require.True(t, ok)
	assert.Equal(t, int64(1704067200), ts.Unix())
}

func TestCheckpointValidate(t *testing.T) {
	c := CheckpointState{
		IdentityHash:   "h",
		Status:         StatusPartial,
		AnalyzedRefs:   []string{"A_1", "A_2"},
		UnanalyzedRefs: []string{"A_3"},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"A_1", "A_2", "A_3"}, c.PlannedRefs())

	c.UnanalyzedRefs = []string{"A_2"}
	assert.Error(t, c.Validate(), "overlap must be rejected")

	c.UnanalyzedRefs = nil
	c.AnalyzedRefs = []string{"A_1", "A_1"}
	assert.Error(t, c.Validate(), "duplicates must be rejected")

	c.AnalyzedRefs = []string{"A_1"}
	c.UnanalyzedRefs = []string{"A_2"}
	c.Status = StatusComplete
	assert.Error(t, c.Validate(), "complete with remaining refs must be rejected")

	c.UnanalyzedRefs = nil
	assert.NoError(t, c.Validate())
}

func TestNewNarrativeHasEverySlot(t *testing.T) {
	n := NewNarrative()
	assert.Len(t, n, len(NarrativeSlots))
	for _, s := range NarrativeSlots {
		v, ok := n[s]
		assert.True(t, ok, s)
		assert.Empty(t, v)
	}
	assert.Equal(t, 0, n.Filled())
	n[SlotKDA] = "nice"
	assert.Equal(t, 1, n.Filled())
}

func TestSamplingPlanReport(t *testing.T) {
	p := SamplingPlan{
		TotalCount: 10, SelectedCount: 4, Percentage: 0.4,
		TierLabel: "high", ConfidenceLabel: "fair",
		PerMonth: map[string]MonthSample{
			"2024-02": {Total: 5, Selected: 2},
			"2024-01": {Total: 5, Selected: 2},
		},
	}
	assert.Equal(t, []string{"2024-01", "2024-02"}, p.Months())
	r := p.Report()
	assert.Contains(t, r, "4 of 10")
	assert.Contains(t, r, "2024-01:   2/  5 matches")
	assert.Contains(t, r, "Time savings: ~60%")
}
