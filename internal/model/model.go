package model

// ---- Raw records returned by the gameplay API ----

// Participant is one player's line in a match.
type Participant struct {
	PUUID          string `json:"puuid"`
	RiotIDGameName string `json:"riotIdGameName"`
	SummonerName   string `json:"summonerName"`
	ChampionName   string `json:"championName"`
	TeamID         int    `json:"teamId"`
	TeamPosition   string `json:"teamPosition"`
	Win            bool   `json:"win"`

	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`

	VisionScore             int `json:"visionScore"`
	WardsPlaced             int `json:"wardsPlaced"`
	VisionWardsBoughtInGame int `json:"visionWardsBoughtInGame"`

	TotalMinionsKilled   int `json:"totalMinionsKilled"`
	NeutralMinionsKilled int `json:"neutralMinionsKilled"`

	QuadraKills int `json:"quadraKills"`
	PentaKills  int `json:"pentaKills"`
}

// DisplayName prefers the Riot ID game name and falls back to the legacy summoner name.
func (p *Participant) DisplayName() string {
	if p.RiotIDGameName != "" {
		return p.RiotIDGameName
	}
	if p.SummonerName != "" {
		return p.SummonerName
	}
	return "Unknown"
}

// MatchRecord is the subset of a MATCH-V5 body the aggregator reads.
type MatchRecord struct {
	Metadata struct {
		MatchID string `json:"matchId"`
	} `json:"metadata"`
	Info struct {
		GameCreation int64         `json:"gameCreation"`
		GameDuration int           `json:"gameDuration"` // seconds
		GameMode     string        `json:"gameMode"`
		QueueID      int           `json:"queueId"`
		Participants []Participant `json:"participants"`
	} `json:"info"`
}

// Participant returns the line for puuid, or nil if the player is not in the match.
func (m *MatchRecord) Participant(puuid string) *Participant {
	for i := range m.Info.Participants {
		if m.Info.Participants[i].PUUID == puuid {
			return &m.Info.Participants[i]
		}
	}
	return nil
}

// LeagueEntry is one ranked queue standing from LEAGUE-V4.
type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// PlayerSummary is the player-facing header of a rewind.
type PlayerSummary struct {
	GameName string       `json:"gameName"`
	TagLine  string       `json:"tagLine"`
	Region   string       `json:"region"`
	PUUID    string       `json:"puuid"`
	Solo     *LeagueEntry `json:"soloQueue,omitempty"`
	Flex     *LeagueEntry `json:"flexQueue,omitempty"`
}

// ---- Aggregated analytics ----

// AnalyticsVersion is bumped whenever the Analytics schema changes shape.
const AnalyticsVersion = 1

type TimeSpent struct {
	TotalGames    int     `json:"totalGames"`
	TotalHours    float64 `json:"totalHours"`
	TotalMinutes  float64 `json:"totalMinutes"`
	AvgGameLength float64 `json:"avgGameLength"` // minutes
}

type ChampionStats struct {
	Name       string  `json:"name"`
	Games      int     `json:"games"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"winRate"`
	AvgKills   float64 `json:"avgKills"`
	AvgDeaths  float64 `json:"avgDeaths"`
	AvgAssists float64 `json:"avgAssists"`
	KDA        float64 `json:"kda"`
}

type BestMatch struct {
	MatchID   string  `json:"matchId"`
	Champion  string  `json:"champion"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Assists   int     `json:"assists"`
	KDA       float64 `json:"kda"`
	Result    string  `json:"result"`
	Duration  float64 `json:"duration"` // minutes
	GameMode  string  `json:"gameMode"`
	Timestamp int64   `json:"timestamp"`
}

type KDA struct {
	Games        int     `json:"games"`
	Wins         int     `json:"wins"`
	TotalKills   int     `json:"totalKills"`
	TotalDeaths  int     `json:"totalDeaths"`
	TotalAssists int     `json:"totalAssists"`
	AvgKills     float64 `json:"avgKills"`
	AvgDeaths    float64 `json:"avgDeaths"`
	AvgAssists   float64 `json:"avgAssists"`
	Ratio        float64 `json:"kdaRatio"`
}

type RankedJourney struct {
	CurrentRank string  `json:"currentRank"`
	Tier        string  `json:"tier"`
	Division    string  `json:"division"`
	LP          int     `json:"lp"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
}

type Vision struct {
	AvgVisionScore   float64 `json:"avgVisionScore"`
	AvgWardsPlaced   float64 `json:"avgWardsPlaced"`
	AvgControlWards  float64 `json:"avgControlWards"`
	TotalVisionScore int     `json:"totalVisionScore"`
}

type ChampionPool struct {
	UniqueChampions int      `json:"uniqueChampions"`
	TotalGames      int      `json:"totalGames"`
	DiversityScore  float64  `json:"diversityScore"`
	Champions       []string `json:"championList"`
}

type DuoPartner struct {
	PartnerName   string  `json:"partnerName"`
	GamesTogether int     `json:"gamesTogether"`
	Wins          int     `json:"wins"`
	WinRate       float64 `json:"winRate"`
}

type Assessment struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

type Achievement struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

type Percentile struct {
	RankPercentile float64 `json:"rankPercentile"`
	Rank           string  `json:"rank"`
	KDARatio       float64 `json:"kdaRatio"`
	Comparison     string  `json:"comparison"`
}

// Analytics is a versioned snapshot over every match accumulated so far.
type Analytics struct {
	Version        int             `json:"version"`
	MatchesCounted int             `json:"matchesCounted"`
	TimeSpent      TimeSpent       `json:"timeSpent"`
	Favorites      []ChampionStats `json:"favoriteChampions"`
	BestMatch      *BestMatch      `json:"bestMatch,omitempty"`
	KDA            KDA             `json:"kda"`
	Ranked         RankedJourney   `json:"rankedJourney"`
	Vision         Vision          `json:"vision"`
	Pool           ChampionPool    `json:"championPool"`
	Duo            *DuoPartner     `json:"duoPartner,omitempty"`
	Assessment     Assessment      `json:"analysis"`
	Achievements   []Achievement   `json:"achievements"`
	Percentile     Percentile      `json:"percentile"`
}

// WinRate is the percentage of counted matches that were won.
func (a *Analytics) WinRate() float64 {
	if a.KDA.Games == 0 {
		return 0
	}
	return float64(a.KDA.Wins) / float64(a.KDA.Games) * 100
}

// TopChampion returns the most played champion, or "" before any match is counted.
func (a *Analytics) TopChampion() string {
	if len(a.Favorites) == 0 {
		return ""
	}
	return a.Favorites[0].Name
}
