package riot

import "github.com/pable/rift-rewind/internal/model"

// Account is the ACCOUNT-V1 by-riot-id response.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

const (
	QueueSolo = "RANKED_SOLO_5x5"
	QueueFlex = "RANKED_FLEX_SR"
)

// SplitQueues picks the solo and flex entries out of a LEAGUE-V4 response.
func SplitQueues(entries []model.LeagueEntry) (solo, flex *model.LeagueEntry) {
	for i := range entries {
		switch entries[i].QueueType {
		case QueueSolo:
			solo = &entries[i]
		case QueueFlex:
			flex = &entries[i]
		}
	}
	return solo, flex
}
