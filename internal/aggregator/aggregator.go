package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/pable/rift-rewind/internal/model"
)

// noDeathsKDA stands in for an undefined ratio when the player never died.
const noDeathsKDA = 999

// favoriteCount is how many champions the favorites section keeps.
const favoriteCount = 5

// rankPercentiles is a static tier-to-percentile table.
var rankPercentiles = map[string]float64{
	"IRON":        5,
	"BRONZE":      20,
	"SILVER":      40,
	"GOLD":        60,
	"PLATINUM":    80,
	"EMERALD":     90,
	"DIAMOND":     95,
	"MASTER":      98,
	"GRANDMASTER": 99,
	"CHALLENGER":  99.9,
}

// Aggregate computes the full analytics snapshot for puuid over every match in
// matches. It never works on deltas: callers pass the whole accumulator.
func Aggregate(puuid string, player model.PlayerSummary, matches []model.MatchRecord) model.Analytics {
	a := model.Analytics{
		Version:        model.AnalyticsVersion,
		MatchesCounted: len(matches),
		Favorites:      []model.ChampionStats{},
		Achievements:   []model.Achievement{},
		Assessment:     model.Assessment{Strengths: []string{}, Weaknesses: []string{}},
	}

	// ---- Pass 1: per-match accumulation. ----

	type champAcc struct {
		games, wins            int
		kills, deaths, assists int
		firstSeen              int
	}
	type duoAcc struct {
		games, wins int
		firstSeen   int
	}

	champs := make(map[string]*champAcc)
	duos := make(map[string]*duoAcc)
	var totalSeconds, vision, wards, controlWards, pentas, quadras int
	bestScore := -1.0
	seen := 0

	for i := range matches {
		m := &matches[i]
		totalSeconds += m.Info.GameDuration

		p := m.Participant(puuid)
		if p == nil {
			continue
		}

		a.KDA.Games++
		a.KDA.TotalKills += p.Kills
		a.KDA.TotalDeaths += p.Deaths
		a.KDA.TotalAssists += p.Assists
		if p.Win {
			a.KDA.Wins++
		}

		name := p.ChampionName
		if name == "" {
			name = "Unknown"
		}
		c, ok := champs[name]
		if !ok {
			c = &champAcc{firstSeen: seen}
			seen++
			champs[name] = c
		}
		c.games++
		c.kills += p.Kills
		c.deaths += p.Deaths
		c.assists += p.Assists
		if p.Win {
			c.wins++
		}

		vision += p.VisionScore
		wards += p.WardsPlaced
		controlWards += p.VisionWardsBoughtInGame
		pentas += p.PentaKills
		quadras += p.QuadraKills

		// Best match score is the match KDA plus a flat bonus for winning.
		kda := float64(p.Kills + p.Assists)
		if p.Deaths > 0 {
			kda /= float64(p.Deaths)
		}
		score := kda
		if p.Win {
			score += 10
		}
		if score > bestScore {
			bestScore = score
			result := "Defeat"
			if p.Win {
				result = "Victory"
			}
			a.BestMatch = &model.BestMatch{
				MatchID:   m.Metadata.MatchID,
				Champion:  p.ChampionName,
				Kills:     p.Kills,
				Deaths:    p.Deaths,
				Assists:   p.Assists,
				KDA:       round(kda, 2),
				Result:    result,
				Duration:  math.Round(float64(m.Info.GameDuration) / 60),
				GameMode:  orDefault(m.Info.GameMode, "CLASSIC"),
				Timestamp: m.Info.GameCreation,
			}
		}

		for j := range m.Info.Participants {
			mate := &m.Info.Participants[j]
			if mate.PUUID == puuid || mate.TeamID != p.TeamID {
				continue
			}
			dn := mate.DisplayName()
			d, ok := duos[dn]
			if !ok {
				d = &duoAcc{firstSeen: seen}
				seen++
				duos[dn] = d
			}
			d.games++
			if p.Win {
				d.wins++
			}
		}
	}

	// ---- Pass 2: derived sections. ----

	n := len(matches)
	a.TimeSpent = model.TimeSpent{
		TotalGames:   n,
		TotalHours:   round(float64(totalSeconds)/3600, 1),
		TotalMinutes: math.Round(float64(totalSeconds) / 60),
	}
	if n > 0 {
		a.TimeSpent.AvgGameLength = round(float64(totalSeconds)/float64(n)/60, 1)
	}

	if g := a.KDA.Games; g > 0 {
		avgK := float64(a.KDA.TotalKills) / float64(g)
		avgD := float64(a.KDA.TotalDeaths) / float64(g)
		avgA := float64(a.KDA.TotalAssists) / float64(g)
		a.KDA.AvgKills = round(avgK, 1)
		a.KDA.AvgDeaths = round(avgD, 1)
		a.KDA.AvgAssists = round(avgA, 1)
		a.KDA.Ratio = kdaRatio(avgK, avgD, avgA)

		a.Vision = model.Vision{
			AvgVisionScore:   round(float64(vision)/float64(g), 1),
			AvgWardsPlaced:   round(float64(wards)/float64(g), 1),
			AvgControlWards:  round(float64(controlWards)/float64(g), 1),
			TotalVisionScore: vision,
		}
	} else {
		a.KDA.Ratio = noDeathsKDA
	}

	// Favorites: most games first, first-seen order breaks ties.
	names := make([]string, 0, len(champs))
	for name := range champs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := champs[names[i]], champs[names[j]]
		if ci.games != cj.games {
			return ci.games > cj.games
		}
		return ci.firstSeen < cj.firstSeen
	})
	for _, name := range names {
		if len(a.Favorites) == favoriteCount {
			break
		}
		c := champs[name]
		g := float64(c.games)
		avgK, avgD, avgA := float64(c.kills)/g, float64(c.deaths)/g, float64(c.assists)/g
		a.Favorites = append(a.Favorites, model.ChampionStats{
			Name:       name,
			Games:      c.games,
			Wins:       c.wins,
			WinRate:    round(float64(c.wins)/g*100, 1),
			AvgKills:   round(avgK, 1),
			AvgDeaths:  round(avgD, 1),
			AvgAssists: round(avgA, 1),
			KDA:        kdaRatio(avgK, avgD, avgA),
		})
	}

	pool := append([]string(nil), names...)
	sort.Strings(pool)
	a.Pool = model.ChampionPool{
		UniqueChampions: len(champs),
		TotalGames:      n,
		Champions:       pool,
	}
	if n > 0 {
		a.Pool.DiversityScore = round(float64(len(champs))/float64(n)*100, 1)
	}

	var bestDuo string
	for dn, d := range duos {
		if bestDuo == "" {
			bestDuo = dn
			continue
		}
		b := duos[bestDuo]
		if d.games > b.games || (d.games == b.games && d.firstSeen < b.firstSeen) {
			bestDuo = dn
		}
	}
	if bestDuo != "" {
		d := duos[bestDuo]
		a.Duo = &model.DuoPartner{
			PartnerName:   bestDuo,
			GamesTogether: d.games,
			Wins:          d.wins,
			WinRate:       round(float64(d.wins)/float64(d.games)*100, 1),
		}
	}

	a.Ranked = rankedJourney(player.Solo)
	a.Assessment = assess(a.KDA, a.Vision)
	a.Achievements = achievements(pentas, quadras, n)
	a.Percentile = percentile(a.Ranked, a.KDA.Ratio)
	return a
}

func rankedJourney(solo *model.LeagueEntry) model.RankedJourney {
	if solo == nil {
		return model.RankedJourney{CurrentRank: "UNRANKED", Tier: "UNRANKED"}
	}
	r := model.RankedJourney{
		CurrentRank: solo.Tier + " " + solo.Rank,
		Tier:        solo.Tier,
		Division:    solo.Rank,
		LP:          solo.LeaguePoints,
		Wins:        solo.Wins,
		Losses:      solo.Losses,
	}
	if total := solo.Wins + solo.Losses; total > 0 {
		r.WinRate = round(float64(solo.Wins)/float64(total)*100, 1)
	}
	return r
}

func assess(k model.KDA, v model.Vision) model.Assessment {
	out := model.Assessment{Strengths: []string{}, Weaknesses: []string{}}
	if k.Games == 0 {
		return out
	}
	switch {
	case k.Ratio > 3.0:
		out.Strengths = append(out.Strengths, "Excellent KDA control")
	case k.Ratio < 1.5:
		out.Weaknesses = append(out.Weaknesses, "KDA needs improvement")
	}
	switch {
	case v.AvgVisionScore > 30:
		out.Strengths = append(out.Strengths, "Good vision control")
	case v.AvgVisionScore < 15:
		out.Weaknesses = append(out.Weaknesses, "Low vision score")
	}
	switch {
	case k.AvgDeaths < 4:
		out.Strengths = append(out.Strengths, "Survives well in fights")
	case k.AvgDeaths > 7:
		out.Weaknesses = append(out.Weaknesses, "High death count")
	}
	return out
}

func achievements(pentas, quadras, games int) []model.Achievement {
	out := []model.Achievement{}
	if pentas > 0 {
		out = append(out, model.Achievement{
			Type:        "Pentakills",
			Count:       pentas,
			Description: fmt.Sprintf("Legendary! %d pentakill%s", pentas, plural(pentas)),
		})
	}
	if quadras > 0 {
		out = append(out, model.Achievement{
			Type:        "Quadrakills",
			Count:       quadras,
			Description: fmt.Sprintf("%d quadrakill%s", quadras, plural(quadras)),
		})
	}
	if games >= 100 {
		out = append(out, model.Achievement{
			Type:        "Dedication",
			Count:       games,
			Description: fmt.Sprintf("%d games played - true dedication!", games),
		})
	}
	return out
}

func percentile(r model.RankedJourney, ratio float64) model.Percentile {
	pct, ok := rankPercentiles[r.Tier]
	if !ok {
		pct = 50
	}
	cmp := "Bottom " + strconv.FormatFloat(pct, 'f', -1, 64) + "%"
	if pct > 50 {
		cmp = "Top " + strconv.FormatFloat(round(100-pct, 1), 'f', -1, 64) + "%"
	}
	return model.Percentile{
		RankPercentile: pct,
		Rank:           r.CurrentRank,
		KDARatio:       ratio,
		Comparison:     cmp,
	}
}

func kdaRatio(avgK, avgD, avgA float64) float64 {
	if avgD <= 0 {
		return noDeathsKDA
	}
	return round((avgK+avgA)/avgD, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
