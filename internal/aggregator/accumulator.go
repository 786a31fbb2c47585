package aggregator

import "github.com/pable/rift-rewind/internal/model"

// Accumulator holds every match fetched so far for one job. Matches are kept
// in insertion order and deduplicated by match ID, so replaying a stored
// batch after a resume cannot double count.
type Accumulator struct {
	puuid   string
	player  model.PlayerSummary
	matches []model.MatchRecord
	seen    map[string]bool
}

func NewAccumulator(puuid string, player model.PlayerSummary) *Accumulator {
	return &Accumulator{puuid: puuid, player: player, seen: make(map[string]bool)}
}

// Add appends the matches not already present and returns how many were new.
func (acc *Accumulator) Add(batch []model.MatchRecord) int {
	added := 0
	for _, m := range batch {
		id := m.Metadata.MatchID
		if id != "" && acc.seen[id] {
			continue
		}
		if id != "" {
			acc.seen[id] = true
		}
		acc.matches = append(acc.matches, m)
		added++
	}
	return added
}

func (acc *Accumulator) Len() int { return len(acc.matches) }

// Matches returns the accumulated matches; callers must not modify the slice.
func (acc *Accumulator) Matches() []model.MatchRecord { return acc.matches }

// Snapshot aggregates everything accumulated so far.
func (acc *Accumulator) Snapshot() model.Analytics {
	return Aggregate(acc.puuid, acc.player, acc.matches)
}
