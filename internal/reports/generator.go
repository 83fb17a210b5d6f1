package reports

import (
	"context"
	"errors"
	"fmt"

	"scuttle/internal/statsapi"
)

// ErrRosterUnavailable means the summoners of the guild could not be listed
var ErrRosterUnavailable = errors.New("roster unavailable")

type RosterApi interface {
	GetGuildSummoners(ctx context.Context, guildId string) ([]statsapi.Summoner, error)
}

// Api is everything the weekly report needs from the stats service
type Api interface {
	ChannelApi
	ReportApi
	RosterApi
	CacheApi
}

// Summary is the data behind the three report embeds
type Summary struct {
	GuildName string
	RangeDays int
	Report    statsapi.Report
	Status    CacheStatus
}

// Generator produces the report summary of a guild. Both the weekly batch and
// the /reports command go through it
type Generator struct {
	assembler *Assembler
	roster    RosterApi
	checker   *CacheChecker
}

func NewGenerator(api Api, cacheCheckConcurrency int) *Generator {
	return &Generator{
		assembler: NewAssembler(api),
		roster:    api,
		checker:   NewCacheChecker(api, cacheCheckConcurrency),
	}
}

// Generate returns ErrNoData, ErrUpstream or ErrRosterUnavailable (all wrapped)
// when the summary cannot be built. Failed cache checks only shrink the lists
func (generator *Generator) Generate(ctx context.Context, guild Guild, rangeDays int) (Summary, error) {

	// Report
	report, err := generator.assembler.Assemble(ctx, guild.ID, rangeDays, statsapi.QueueRankedSolo)
	if err != nil {
		return Summary{}, err
	}

	// Roster
	roster, err := generator.roster.GetGuildSummoners(ctx, guild.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("guild %s: %w: %w", guild.ID, ErrRosterUnavailable, err)
	}

	// Cache status
	status := generator.checker.Check(ctx, roster)

	return Summary{GuildName: guild.Name, RangeDays: rangeDays, Report: report, Status: status}, nil
}
