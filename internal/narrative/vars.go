package narrative

import (
	"fmt"
	"strings"

	"github.com/pable/rift-rewind/internal/model"
)

// Vars is the flat variable set every template renders against.
type Vars struct {
	TotalGames     int
	TotalHours     float64
	AvgGameLength  float64
	OverallWinRate float64

	Kills, Deaths, Assists int
	Champion               string
	Duration               float64
	Result                 string

	TotalKills int
	KDARatio   float64
	AvgDeaths  float64

	CurrentRank string
	LP          int
	WinRate     float64
	RankedGames int

	AvgVisionScore  float64
	AvgWardsPlaced  float64
	AvgControlWards float64

	UniqueChampions int
	PoolGames       int

	PartnerName   string
	GamesTogether int
	DuoWinRate    float64

	Strengths  string
	Weaknesses string

	TopPercent   float64
	TopChampion  string
	TopChampions string
}

// VarsFor flattens analytics into template variables, with the same
// fallbacks a reader of a sparse profile would expect.
func VarsFor(a *model.Analytics) Vars {
	v := Vars{
		TotalGames:      a.TimeSpent.TotalGames,
		TotalHours:      a.TimeSpent.TotalHours,
		AvgGameLength:   a.TimeSpent.AvgGameLength,
		OverallWinRate:  round1(a.WinRate()),
		TotalKills:      a.KDA.TotalKills,
		KDARatio:        a.KDA.Ratio,
		AvgDeaths:       a.KDA.AvgDeaths,
		CurrentRank:     a.Ranked.CurrentRank,
		LP:              a.Ranked.LP,
		WinRate:         a.Ranked.WinRate,
		RankedGames:     a.Ranked.Wins + a.Ranked.Losses,
		AvgVisionScore:  a.Vision.AvgVisionScore,
		AvgWardsPlaced:  a.Vision.AvgWardsPlaced,
		AvgControlWards: a.Vision.AvgControlWards,
		UniqueChampions: a.Pool.UniqueChampions,
		PoolGames:       a.Pool.TotalGames,
		PartnerName:     "Solo Player",
		Strengths:       "Good game sense",
		Weaknesses:      "Room for improvement everywhere",
		TopPercent:      round1(100 - a.Percentile.RankPercentile),
		TopChampion:     "None",
		TopChampions:    "Not enough data",
		Champion:        "Unknown",
		Result:          "Defeat",
	}
	if v.CurrentRank == "" {
		v.CurrentRank = "Unranked"
	}
	if b := a.BestMatch; b != nil {
		v.Kills, v.Deaths, v.Assists = b.Kills, b.Deaths, b.Assists
		v.Champion = b.Champion
		v.Duration = b.Duration
		v.Result = b.Result
	}
	if d := a.Duo; d != nil {
		v.PartnerName = d.PartnerName
		v.GamesTogether = d.GamesTogether
		v.DuoWinRate = d.WinRate
	}
	if len(a.Assessment.Strengths) > 0 {
		v.Strengths = strings.Join(a.Assessment.Strengths, ", ")
	}
	if len(a.Assessment.Weaknesses) > 0 {
		v.Weaknesses = strings.Join(a.Assessment.Weaknesses, ", ")
	}
	if len(a.Favorites) > 0 {
		v.TopChampion = a.Favorites[0].Name
		var parts []string
		for i, c := range a.Favorites {
			if i == 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s (%d games)", c.Name, c.Games))
		}
		v.TopChampions = strings.Join(parts, ", ")
	}
	return v
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
