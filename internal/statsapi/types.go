package statsapi

import "fmt"

type Puuid string

// Queue type used by every report and stat the bot requests
const QueueRankedSolo = "ranked_solo"

type RiotId struct {
	GameName string
	TagLine  string
}

// The stats service identifies players as "<name> #<tag>"
func (riotid RiotId) String() string {
	return fmt.Sprintf("%s #%s", riotid.GameName, riotid.TagLine)
}

type Summoner struct {
	Name  string `json:"name"`
	Puuid Puuid  `json:"puuid"`
}

type GuildInfo struct {
	Id   string
	Name string
}

// One row of a comparative report: who holds the top value of a metric.
// Empty strings mean the service sent no value
type ReportRow struct {
	Metric   string
	TopValue string
	TopName  string
}

// Rows keep the order in which the service listed the metrics
type Report []ReportRow

type Stat struct {
	Name  string
	Value string
}

type Playtime struct {
	MatchesPlayed int    `json:"matchesPlayed"`
	Pretty        string `json:"pretty"`
}

type RankingEntry struct {
	Value string
	Name  string
}

type Ranking struct {
	Stat    string
	Entries []RankingEntry
}
