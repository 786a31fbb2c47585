package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ---- Match references ----

// RefTime parses the millisecond timestamp after the last "_" of a match ref
// such as "NA1_1704067200000".
func RefTime(ref string) (time.Time, bool) {
	i := strings.LastIndex(ref, "_")
	if i < 0 || i == len(ref)-1 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(ref[i+1:], 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// MonthKey buckets a ref into its UTC "YYYY-MM" month, using now for refs
// without a parseable timestamp.
func MonthKey(ref string, now time.Time) string {
	t, ok := RefTime(ref)
	if !ok {
		t = now.UTC()
	}
	return t.Format("2006-01")
}

// ---- Sampling ----

type MonthSample struct {
	Total    int `json:"total"`
	Selected int `json:"selected"`
}

// SamplingPlan records which refs were chosen for analysis and why.
type SamplingPlan struct {
	TotalCount      int                    `json:"totalCount"`
	SelectedCount   int                    `json:"selectedCount"`
	SelectedRefs    []string               `json:"selectedRefs"`
	Percentage      float64                `json:"percentage"`
	TierLabel       string                 `json:"tierLabel"`
	ConfidenceLabel string                 `json:"confidenceLabel"`
	PerMonth        map[string]MonthSample `json:"perMonth"`
}

// Months returns the breakdown keys in ascending order.
func (p *SamplingPlan) Months() []string {
	keys := make([]string, 0, len(p.PerMonth))
	for k := range p.PerMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report renders the plan as a short multi-line breakdown.
func (p *SamplingPlan) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sampling: %d of %d matches (%.1f%%, %s tier)\n",
		p.SelectedCount, p.TotalCount, p.Percentage*100, p.TierLabel)
	fmt.Fprintf(&b, "Confidence: %s\n", p.ConfidenceLabel)
	fmt.Fprintf(&b, "Time savings: ~%d%%\n", int((1-p.Percentage)*100))
	for _, k := range p.Months() {
		m := p.PerMonth[k]
		var share, sampled float64
		if p.TotalCount > 0 {
			share = float64(m.Total) / float64(p.TotalCount) * 100
		}
		if m.Total > 0 {
			sampled = float64(m.Selected) / float64(m.Total) * 100
		}
		fmt.Fprintf(&b, "  %s: %3d/%3d matches (%5.1f%% of period, %5.1f%% sampled)\n",
			k, m.Selected, m.Total, share, sampled)
	}
	return b.String()
}

// ---- Checkpoint ----

type CheckpointStatus string

const (
	StatusPartial  CheckpointStatus = "partial"
	StatusComplete CheckpointStatus = "complete"
)

// CheckpointState is the resumable progress record of one job.
type CheckpointState struct {
	IdentityHash     string           `json:"identityHash"`
	Identity         Identity         `json:"identity"`
	JobID            string           `json:"jobId"`
	Player           PlayerSummary    `json:"player"`
	Status           CheckpointStatus `json:"status"`
	TotalMatches     int              `json:"totalMatches"`
	Sampling         *SamplingPlan    `json:"sampling,omitempty"`
	AnalyzedRefs     []string         `json:"analyzedRefs"`
	UnanalyzedRefs   []string         `json:"unanalyzedRefs"`
	LastBatchNumber  int              `json:"lastBatchNumber"`
	PartialAnalytics Analytics        `json:"partialAnalytics"`
	PartialNarrative Narrative        `json:"partialNarrative"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastUpdatedAt    time.Time        `json:"lastUpdatedAt"`
	ExpiresAt        time.Time        `json:"expiresAt"`
}

// Validate checks the ref bookkeeping: no duplicates, disjoint lists, and
// nothing left unanalyzed once complete.
func (c *CheckpointState) Validate() error {
	seen := make(map[string]bool, len(c.AnalyzedRefs)+len(c.UnanalyzedRefs))
	for _, r := range c.AnalyzedRefs {
		if seen[r] {
			return fmt.Errorf("checkpoint %s: duplicate analyzed ref %s", c.IdentityHash, r)
		}
		seen[r] = true
	}
	for _, r := range c.UnanalyzedRefs {
		if seen[r] {
			return fmt.Errorf("checkpoint %s: ref %s is both analyzed and unanalyzed", c.IdentityHash, r)
		}
		seen[r] = true
	}
	if c.Status == StatusComplete && len(c.UnanalyzedRefs) > 0 {
		return fmt.Errorf("checkpoint %s: complete with %d unanalyzed refs", c.IdentityHash, len(c.UnanalyzedRefs))
	}
	if c.Status != StatusPartial && c.Status != StatusComplete {
		return fmt.Errorf("checkpoint %s: unknown status %q", c.IdentityHash, c.Status)
	}
	return nil
}

// PlannedRefs is the full ref set of the job, analyzed first.
func (c *CheckpointState) PlannedRefs() []string {
	out := make([]string, 0, len(c.AnalyzedRefs)+len(c.UnanalyzedRefs))
	out = append(out, c.AnalyzedRefs...)
	return append(out, c.UnanalyzedRefs...)
}

// ---- Narrative ----

// Narrative slot names, in presentation order.
const (
	SlotTimeSpent    = "time_spent"
	SlotFavorites    = "favorite_champions"
	SlotBestMatch    = "best_match"
	SlotKDA          = "kda"
	SlotRanked       = "ranked"
	SlotVision       = "vision"
	SlotChampionPool = "champion_pool"
	SlotDuo          = "duo"
	SlotStrength     = "strength"
	SlotWeakness     = "weakness"
	SlotProgress     = "progress"
	SlotAchievements = "achievements"
	SlotPercentile   = "percentile"
	SlotFarewell     = "farewell"
)

var NarrativeSlots = []string{
	SlotTimeSpent, SlotFavorites, SlotBestMatch, SlotKDA, SlotRanked, SlotVision,
	SlotChampionPool, SlotDuo, SlotStrength, SlotWeakness, SlotProgress,
	SlotAchievements, SlotPercentile, SlotFarewell,
}

// Narrative maps a slot name to generated text; "" means not generated.
type Narrative map[string]string

// NewNarrative returns a narrative with every known slot present and empty.
func NewNarrative() Narrative {
	n := make(Narrative, len(NarrativeSlots))
	for _, s := range NarrativeSlots {
		n[s] = ""
	}
	return n
}

// Filled counts slots with non-empty text.
func (n Narrative) Filled() int {
	c := 0
	for _, v := range n {
		if v != "" {
			c++
		}
	}
	return c
}

// Insights is the structured coaching summary produced alongside the slots.
type Insights struct {
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	CoachingTips     []string `json:"coaching_tips"`
	PlayStyle        string   `json:"play_style"`
	PersonalityTitle string   `json:"personality_title"`
}

// FallbackInsights is used when the text service returns nothing usable.
func FallbackInsights() Insights {
	return Insights{
		Strengths:        []string{"Data analysis in progress"},
		Weaknesses:       []string{"More matches needed for accurate analysis"},
		CoachingTips:     []string{"Keep playing ranked games for better insights"},
		PlayStyle:        "Developing player profile",
		PersonalityTitle: "The Rising Summoner",
	}
}

// ---- Result ----

// ResultRecord is the finished rewind, written once per completed job.
type ResultRecord struct {
	IdentityHash string        `json:"identityHash"`
	JobID        string        `json:"jobId"`
	Analytics    Analytics     `json:"analytics"`
	Narrative    Narrative     `json:"narrative"`
	Insights     Insights      `json:"insights"`
	Player       PlayerSummary `json:"player"`
	MatchCount   int           `json:"matchCount"`
	TotalMatches int           `json:"totalMatches"`
	Sampling     *SamplingPlan `json:"sampling,omitempty"`
	CachedAt     time.Time     `json:"cachedAt"`
	ExpiresAt    time.Time     `json:"expiresAt"`
}

// ---- Status ----

type JobState string

const (
	StateQueued     JobState = "queued"
	StateSearching  JobState = "searching"
	StateFound      JobState = "found"
	StateAnalyzing  JobState = "analyzing"
	StateGenerating JobState = "generating"
	StateComplete   JobState = "complete"
	StateError      JobState = "error"
)

type Progress struct {
	Analyzed int `json:"analyzed"`
	Planned  int `json:"planned"`
	Batch    int `json:"batch"`
}

// StatusDoc is the poll document shown while a job runs.
type StatusDoc struct {
	IdentityHash string         `json:"identityHash"`
	State        JobState       `json:"state"`
	Message      string         `json:"message"`
	Progress     Progress       `json:"progress"`
	Summary      *PlayerSummary `json:"summary,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Terminal reports whether the job has stopped.
func (s *StatusDoc) Terminal() bool {
	return s.State == StateComplete || s.State == StateError
}
