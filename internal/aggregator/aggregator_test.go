package aggregator

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pable/rift-rewind/internal/model"
)

const me = "puuid-me"

// makeMatch builds a match where me plays champ on team 100 alongside the
// named teammates, against a single enemy on team 200.
func makeMatch(id, champ string, k, d, a int, win bool, durationSec int, mates ...string) model.MatchRecord {
	var m model.MatchRecord
	m.Metadata.MatchID = id
	m.Info.GameDuration = durationSec
	m.Info.GameCreation = 1704067200000
	m.Info.GameMode = "CLASSIC"
	m.Info.QueueID = 420
	m.Info.Participants = append(m.Info.Participants, model.Participant{
		PUUID: me, RiotIDGameName: "Me", ChampionName: champ, TeamID: 100,
		Kills: k, Deaths: d, Assists: a, Win: win,
	})
	for _, name := range mates {
		m.Info.Participants = append(m.Info.Participants, model.Participant{
			PUUID: "puuid-" + name, RiotIDGameName: name, TeamID: 100, Win: win,
		})
	}
	m.Info.Participants = append(m.Info.Participants, model.Participant{
		PUUID: "puuid-enemy", RiotIDGameName: "Eve", TeamID: 200, Win: !win,
	})
	return m
}

func sampleMatches() []model.MatchRecord {
	return []model.MatchRecord{
		makeMatch("NA1_1", "Ahri", 10, 2, 5, true, 1800, "Bob", "Cat"),
		makeMatch("NA1_2", "Ahri", 2, 4, 6, false, 1200, "Bob"),
		makeMatch("NA1_3", "Zed", 6, 0, 3, true, 1500, "Bob"),
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

// ---- KDA and time ----

func TestAggregateKDAAndTime(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, sampleMatches())

	if a.KDA.Games != 3 || a.KDA.Wins != 2 {
		t.Fatalf("games/wins: got %d/%d, want 3/2", a.KDA.Games, a.KDA.Wins)
	}
	if a.KDA.TotalKills != 18 || a.KDA.TotalDeaths != 6 || a.KDA.TotalAssists != 14 {
		t.Errorf("totals: got %d/%d/%d", a.KDA.TotalKills, a.KDA.TotalDeaths, a.KDA.TotalAssists)
	}
	if !approx(a.KDA.AvgKills, 6) || !approx(a.KDA.AvgDeaths, 2) || !approx(a.KDA.AvgAssists, 4.7) {
		t.Errorf("averages: got %v/%v/%v", a.KDA.AvgKills, a.KDA.AvgDeaths, a.KDA.AvgAssists)
	}
	if !approx(a.KDA.Ratio, 5.33) {
		t.Errorf("ratio: got %v, want 5.33", a.KDA.Ratio)
	}
	if !approx(a.WinRate(), 200.0/3.0) {
		t.Errorf("win rate: got %v", a.WinRate())
	}

	if a.TimeSpent.TotalGames != 3 || !approx(a.TimeSpent.TotalMinutes, 75) || !approx(a.TimeSpent.AvgGameLength, 25) {
		t.Errorf("time spent: %+v", a.TimeSpent)
	}
	if !approx(a.TimeSpent.TotalHours, 1.3) {
		t.Errorf("total hours: got %v, want 1.3", a.TimeSpent.TotalHours)
	}
}

func TestAggregateNoDeathsRatio(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, []model.MatchRecord{
		makeMatch("NA1_1", "Zed", 5, 0, 5, true, 1200),
	})
	if a.KDA.Ratio != noDeathsKDA {
		t.Errorf("ratio with no deaths: got %v, want %v", a.KDA.Ratio, noDeathsKDA)
	}
}

// ---- Champions ----

func TestAggregateFavoritesAndPool(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, sampleMatches())

	if len(a.Favorites) != 2 {
		t.Fatalf("favorites: got %d, want 2", len(a.Favorites))
	}
	ahri := a.Favorites[0]
	if ahri.Name != "Ahri" || ahri.Games != 2 || ahri.Wins != 1 || !approx(ahri.WinRate, 50) {
		t.Errorf("ahri: %+v", ahri)
	}
	if !approx(ahri.AvgAssists, 5.5) || !approx(ahri.KDA, 3.83) {
		t.Errorf("ahri averages: %+v", ahri)
	}
	if a.Favorites[1].Name != "Zed" || a.Favorites[1].KDA != noDeathsKDA {
		t.Errorf("zed: %+v", a.Favorites[1])
	}
	if a.TopChampion() != "Ahri" {
		t.Errorf("top champion: got %q", a.TopChampion())
	}

	if a.Pool.UniqueChampions != 2 || !approx(a.Pool.DiversityScore, 66.7) {
		t.Errorf("pool: %+v", a.Pool)
	}
	if !reflect.DeepEqual(a.Pool.Champions, []string{"Ahri", "Zed"}) {
		t.Errorf("champion list: %v", a.Pool.Champions)
	}
}

func TestAggregateFavoritesCappedAtFive(t *testing.T) {
	var ms []model.MatchRecord
	for i, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		ms = append(ms, makeMatch(fmt.Sprintf("NA1_%d", i), c, 1, 1, 1, true, 600))
	}
	a := Aggregate(me, model.PlayerSummary{}, ms)
	if len(a.Favorites) != favoriteCount {
		t.Fatalf("favorites: got %d, want %d", len(a.Favorites), favoriteCount)
	}
	// All tied on games, so first-seen order wins.
	if a.Favorites[0].Name != "A" || a.Favorites[4].Name != "E" {
		t.Errorf("tie order: %v .. %v", a.Favorites[0].Name, a.Favorites[4].Name)
	}
	if a.Pool.UniqueChampions != 7 {
		t.Errorf("unique: got %d, want 7", a.Pool.UniqueChampions)
	}
}

// ---- Best match and duo ----

func TestAggregateBestMatch(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, sampleMatches())
	b := a.BestMatch
	if b == nil {
		t.Fatal("expected a best match")
	}
	// NA1_3: (6+3) with no deaths plus the win bonus beats NA1_1's 7.5+10.
	if b.MatchID != "NA1_3" || b.Champion != "Zed" || b.Result != "Victory" {
		t.Errorf("best match: %+v", b)
	}
	if !approx(b.KDA, 9) || !approx(b.Duration, 25) {
		t.Errorf("best match numbers: %+v", b)
	}
}

func TestAggregateDuoPartner(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, sampleMatches())
	if a.Duo == nil {
		t.Fatal("expected a duo partner")
	}
	if a.Duo.PartnerName != "Bob" || a.Duo.GamesTogether != 3 || a.Duo.Wins != 2 {
		t.Errorf("duo: %+v", a.Duo)
	}
	if !approx(a.Duo.WinRate, 66.7) {
		t.Errorf("duo win rate: got %v", a.Duo.WinRate)
	}
}

// ---- Assessment, achievements, percentile ----

func TestAggregateAssessment(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, sampleMatches())
	wantS := []string{"Excellent KDA control", "Survives well in fights"}
	wantW := []string{"Low vision score"}
	if !reflect.DeepEqual(a.Assessment.Strengths, wantS) {
		t.Errorf("strengths: got %v, want %v", a.Assessment.Strengths, wantS)
	}
	if !reflect.DeepEqual(a.Assessment.Weaknesses, wantW) {
		t.Errorf("weaknesses: got %v, want %v", a.Assessment.Weaknesses, wantW)
	}
}

func TestAggregateAchievements(t *testing.T) {
	ms := make([]model.MatchRecord, 0, 100)
	for i := 0; i < 100; i++ {
		ms = append(ms, makeMatch(fmt.Sprintf("NA1_%d", i), "Jinx", 3, 3, 3, i%2 == 0, 1500))
	}
	ms[0].Info.Participants[0].PentaKills = 1
	ms[1].Info.Participants[0].QuadraKills = 1
	ms[2].Info.Participants[0].QuadraKills = 1

	a := Aggregate(me, model.PlayerSummary{}, ms)
	if len(a.Achievements) != 3 {
		t.Fatalf("achievements: got %d, want 3: %+v", len(a.Achievements), a.Achievements)
	}
	want := []string{"Legendary! 1 pentakill", "2 quadrakills", "100 games played - true dedication!"}
	for i, w := range want {
		if a.Achievements[i].Description != w {
			t.Errorf("achievement %d: got %q, want %q", i, a.Achievements[i].Description, w)
		}
	}
}

func TestAggregatePercentile(t *testing.T) {
	cases := []struct {
		solo *model.LeagueEntry
		pct  float64
		cmp  string
		rank string
	}{
		{nil, 50, "Bottom 50%", "UNRANKED"},
		{&model.LeagueEntry{Tier: "GOLD", Rank: "II", Wins: 30, Losses: 20}, 60, "Top 40%", "GOLD II"},
		{&model.LeagueEntry{Tier: "BRONZE", Rank: "IV"}, 20, "Bottom 20%", "BRONZE IV"},
		{&model.LeagueEntry{Tier: "CHALLENGER", Rank: "I"}, 99.9, "Top 0.1%", "CHALLENGER I"},
	}
	for _, tc := range cases {
		a := Aggregate(me, model.PlayerSummary{Solo: tc.solo}, sampleMatches())
		if a.Percentile.RankPercentile != tc.pct || a.Percentile.Comparison != tc.cmp {
			t.Errorf("%s: got %v %q", tc.rank, a.Percentile.RankPercentile, a.Percentile.Comparison)
		}
		if a.Ranked.CurrentRank != tc.rank {
			t.Errorf("rank: got %q, want %q", a.Ranked.CurrentRank, tc.rank)
		}
	}

	a := Aggregate(me, model.PlayerSummary{Solo: cases[1].solo}, nil)
	if !approx(a.Ranked.WinRate, 60) || a.Ranked.LP != 0 {
		t.Errorf("ranked journey: %+v", a.Ranked)
	}
}

// ---- Edge cases ----

func TestAggregateEmpty(t *testing.T) {
	a := Aggregate(me, model.PlayerSummary{}, nil)
	if a.Version != model.AnalyticsVersion {
		t.Errorf("version: got %d", a.Version)
	}
	if a.BestMatch != nil || a.Duo != nil {
		t.Error("expected no best match and no duo for an empty history")
	}
	if a.KDA.Ratio != noDeathsKDA || len(a.Favorites) != 0 {
		t.Errorf("empty analytics: %+v", a.KDA)
	}
	if len(a.Assessment.Strengths) != 0 || len(a.Assessment.Weaknesses) != 0 {
		t.Errorf("empty assessment: %+v", a.Assessment)
	}
}

func TestAggregateSkipsMatchesWithoutPlayer(t *testing.T) {
	ms := sampleMatches()
	other := makeMatch("NA1_9", "Lux", 1, 1, 1, true, 600)
	other.Info.Participants[0].PUUID = "someone-else"
	ms = append(ms, other)

	a := Aggregate(me, model.PlayerSummary{}, ms)
	if a.KDA.Games != 3 {
		t.Errorf("games: got %d, want 3", a.KDA.Games)
	}
	if a.TimeSpent.TotalGames != 4 || a.MatchesCounted != 4 {
		t.Errorf("time spent should count every match: %+v", a.TimeSpent)
	}
}

// ---- Accumulator ----

func TestAccumulatorDedupesAndMatchesOneShot(t *testing.T) {
	ms := sampleMatches()
	acc := NewAccumulator(me, model.PlayerSummary{})
	if n := acc.Add(ms[:2]); n != 2 {
		t.Fatalf("first add: got %d", n)
	}
	// Replaying a batch (as a resume does) adds nothing.
	if n := acc.Add(ms[:2]); n != 0 {
		t.Fatalf("replayed add: got %d, want 0", n)
	}
	acc.Add(ms[2:])
	if acc.Len() != 3 {
		t.Fatalf("len: got %d, want 3", acc.Len())
	}

	got := acc.Snapshot()
	want := Aggregate(me, model.PlayerSummary{}, ms)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("incremental snapshot differs from one-shot aggregate\n got %+v\nwant %+v", got, want)
	}
}
