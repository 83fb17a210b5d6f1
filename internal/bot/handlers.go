package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scuttle/internal/reports"
	"scuttle/internal/statsapi"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Api is everything the commands and events need from the stats service
type Api interface {
	reports.Api
	SetGuildChannel(ctx context.Context, guildId string, channelId string) error
	GetGuild(ctx context.Context, guildId string) (statsapi.GuildInfo, error)
	AddGuild(ctx context.Context, guildId string, guildName string) error
	UpdateGuildCount(ctx context.Context, count int) error
	UpdateTopggStats(ctx context.Context, guildCount int, shardCount int) error
	AddSummoner(ctx context.Context, guildId string, riotid statsapi.RiotId) (bool, error)
	RemoveSummoner(ctx context.Context, guildId string, riotid statsapi.RiotId) (bool, error)
	GetPuuid(ctx context.Context, riotid statsapi.RiotId) (statsapi.Puuid, error)
	GetPrettyStats(ctx context.Context, puuid statsapi.Puuid, rangeDays int, queueType string) ([]statsapi.Stat, error)
	GetHours(ctx context.Context, puuid statsapi.Puuid, rangeDays int, queueType string) (statsapi.Playtime, error)
	GetPrettyRankings(ctx context.Context, guildId string, startDate time.Time, queueType string) ([]statsapi.Ranking, error)
}

// Request is a parsed slash command together with where it was used
type Request struct {
	ParseResult
	GuildId   string
	GuildName string
	ChannelId string
	UserId    string
}

// The embeds are always shown to the user. The error only tells
// that something unexpected happened and is never shown
type handler func(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error)

// Handlers answer slash commands. They know nothing about the discord session
type Handlers struct {
	api         Api
	generator   *reports.Generator
	ownerId     string
	supportLink string
	now         func() time.Time
}

func NewHandlers(api Api, generator *reports.Generator, ownerId string, supportLink string) *Handlers {
	return &Handlers{api: api, generator: generator, ownerId: ownerId, supportLink: supportLink, now: time.Now}
}

func (handlers *Handlers) handler(command string) (handler, bool) {
	switch command {
	case COMMAND_ENABLE:
		return handlers.enable, true
	case COMMAND_HELP:
		return func(context.Context, Request) ([]*discordgo.MessageEmbed, error) { return HelpMessage(), nil }, true
	case COMMAND_SUPPORT:
		return func(context.Context, Request) ([]*discordgo.MessageEmbed, error) {
			return SupportMessage(handlers.supportLink), nil
		}, true
	case COMMAND_SUMMONERS:
		return handlers.summoners, true
	case COMMAND_REPORTS:
		return handlers.reports, true
	case COMMAND_STATS:
		return handlers.stats, true
	case COMMAND_HOURS:
		return handlers.hours, true
	case COMMAND_RANKINGS:
		return handlers.rankings, true
	}
	return nil, false
}

// Handle runs the command of the request
func (handlers *Handlers) Handle(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	if req.parseid != PARSEID_OK {
		return InputNotValid(req.errorMessage), nil
	}
	if guildOnly(req.command, req.subcommand) && req.GuildId == "" {
		return GuildOnly(), nil
	}
	handle, ok := handlers.handler(req.command)
	if !ok {
		return CommandError(), fmt.Errorf("no handler for command %s", req.command)
	}
	return handle(ctx, req)
}

func (handlers *Handlers) enable(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	err := handlers.api.SetGuildChannel(ctx, req.GuildId, req.ChannelId)
	if errors.Is(err, statsapi.ErrBadRequest) {
		return EnableFailed("Scuttle is already enabled on this channel."), nil
	}
	if err != nil {
		return EnableFailed("An error occurred while enabling the channel."), err
	}
	log.Info().Str("guild", req.GuildId).Str("channel", req.ChannelId).Msg("Main channel enabled")
	return EnableSucceeded(), nil
}

func (handlers *Handlers) summoners(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	guildName := orUnknown(req.GuildName)
	switch req.subcommand {
	case SUBCOMMAND_LIST:
		roster, err := handlers.api.GetGuildSummoners(ctx, req.GuildId)
		if errors.Is(err, statsapi.ErrNotFound) {
			return CommandFailed(COMMAND_SUMMONERS, "There are currently no summoners in your guild. Add summoners using `/summoners add`."), nil
		}
		if err != nil {
			return CommandFailed(COMMAND_SUMMONERS, "An error occurred while fetching the summoners of this guild."), err
		}
		if len(roster) == 0 {
			return CommandFailed(COMMAND_SUMMONERS, "This guild does not have any summoners. Add summoners using `/summoners add`."), nil
		}
		return SummonersList(guildName, roster), nil

	case SUBCOMMAND_ADD:
		success, err := handlers.api.AddSummoner(ctx, req.GuildId, req.riotid)
		if err != nil {
			return SummonerAdded(req.riotid, guildName, false), err
		}
		return SummonerAdded(req.riotid, guildName, success), nil

	case SUBCOMMAND_REMOVE:
		success, err := handlers.api.RemoveSummoner(ctx, req.GuildId, req.riotid)
		if err != nil {
			return SummonerRemoved(req.riotid, guildName, false), err
		}
		return SummonerRemoved(req.riotid, guildName, success), nil
	}
	return CommandError(), fmt.Errorf("unexpected subcommand %s", req.subcommand)
}

func (handlers *Handlers) reports(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	guild := reports.Guild{ID: req.GuildId, Name: orUnknown(req.GuildName)}
	rangeDays := rangeDays(req.command, req.subcommand)

	if req.subcommand == SUBCOMMAND_ADMIN {
		if handlers.ownerId == "" || req.UserId != handlers.ownerId {
			return ReportsAdminOnly(), nil
		}
		info, err := handlers.api.GetGuild(ctx, req.targetGuildId)
		if errors.Is(err, statsapi.ErrNotFound) {
			return CommandFailed(COMMAND_REPORTS, "The specified guild does not exist."), nil
		}
		if err != nil {
			return CommandFailed(COMMAND_REPORTS, "An error occurred while fetching the guild."), err
		}
		guild = reports.Guild{ID: info.Id, Name: orUnknown(info.Name)}
		rangeDays = reports.WEEKLY_RANGE_DAYS
	}

	summary, err := handlers.generator.Generate(ctx, guild, rangeDays)
	if errors.Is(err, reports.ErrNoData) {
		return CommandFailed(COMMAND_REPORTS, "No report found. Please ensure summoners are added to your server using `/summoners add Name Tag`."), nil
	}
	if err != nil {
		return CommandFailed(COMMAND_REPORTS, "An error occurred while generating the report."), err
	}
	return summary.Embeds(), nil
}

// Find the puuid of the riot id and check it belongs to the guild.
// A non empty slice of embeds means the command stops there
func (handlers *Handlers) guildMember(ctx context.Context, req Request, purpose string) (statsapi.Puuid, []*discordgo.MessageEmbed, error) {

	// Puuid
	puuid, err := handlers.api.GetPuuid(ctx, req.riotid)
	if errors.Is(err, statsapi.ErrNotFound) {
		return "", CommandFailed(req.command, fmt.Sprintf("Error getting %s for summoner **%s**. Make sure this user exists.", purpose, req.riotid)), nil
	}
	if err != nil {
		return "", CommandFailed(req.command, fmt.Sprintf("An error occurred while looking up **%s**.", req.riotid)), err
	}

	// Membership
	roster, err := handlers.api.GetGuildSummoners(ctx, req.GuildId)
	if err != nil && !errors.Is(err, statsapi.ErrNotFound) {
		return "", CommandFailed(req.command, "An error occurred while fetching the summoners of this guild."), err
	}
	if len(roster) == 0 {
		return "", CommandFailed(req.command, "There are currently no summoners in your guild. Add a summoner with `/summoners add {RIOT ID}` first."), nil
	}
	for _, summoner := range roster {
		if summoner.Puuid == puuid {
			return puuid, nil, nil
		}
	}
	return "", CommandFailed(req.command, fmt.Sprintf("Summoner **%s** is not part of your guild. Add them with `/summoners add {RIOT ID}` first.", req.riotid)), nil
}

func (handlers *Handlers) stats(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	rangeDays := rangeDays(req.command, req.subcommand)
	puuid, stop, err := handlers.guildMember(ctx, req, "stats")
	if stop != nil {
		return stop, err
	}

	// Cache
	cached, err := handlers.api.IsSummonerCached(ctx, puuid, req.riotid.String(), rangeDays)
	if err != nil {
		return CommandFailed(req.command, "An error occurred while checking the match data of this summoner."), err
	}
	if !cached {
		return CommandFailed(req.command, fmt.Sprintf("Summoner **%s** has been added recently and does not have match data yet. Please allow about 1 hour.", req.riotid)), nil
	}

	// Stats
	stats, err := handlers.api.GetPrettyStats(ctx, puuid, rangeDays, statsapi.QueueRankedSolo)
	if errors.Is(err, statsapi.ErrNotFound) {
		return CommandFailed(req.command, fmt.Sprintf("No stats found for **%s**.", req.riotid)), nil
	}
	if err != nil {
		return CommandFailed(req.command, "An error occurred while fetching the stats."), err
	}
	return StatsMessage(req.riotid, rangeDays, stats), nil
}

func (handlers *Handlers) hours(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	rangeDays := rangeDays(req.command, req.subcommand)
	puuid, stop, err := handlers.guildMember(ctx, req, "playtime")
	if stop != nil {
		return stop, err
	}

	playtime, err := handlers.api.GetHours(ctx, puuid, rangeDays, statsapi.QueueRankedSolo)
	if errors.Is(err, statsapi.ErrNotFound) {
		return CommandFailed(req.command, fmt.Sprintf("No playtime data found for **%s**.", req.riotid)), nil
	}
	if err != nil {
		return CommandFailed(req.command, "An error occurred while fetching the playtime."), err
	}
	return HoursMessage(req.riotid, rangeDays, playtime), nil
}

func (handlers *Handlers) rankings(ctx context.Context, req Request) ([]*discordgo.MessageEmbed, error) {

	now := handlers.now().UTC()
	start := RankingStart(req.subcommand, now)

	rankings, err := handlers.api.GetPrettyRankings(ctx, req.GuildId, start, statsapi.QueueRankedSolo)
	if errors.Is(err, statsapi.ErrNotFound) {
		return NoRankings(), nil
	}
	if err != nil {
		return CommandFailed(req.command, "An error occurred while retrieving rankings."), err
	}
	return RankingsMessage(req.GuildName, start, now, rankings), nil
}

// RankingStart is the first day counted by the rankings: the most recent
// Monday for weekly rankings, the first of the month for monthly ones
func RankingStart(subcommand string, now time.Time) time.Time {
	year, month, day := now.Date()
	if subcommand == SUBCOMMAND_MONTHLY {
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	}
	sinceMonday := (int(now.Weekday()) + 6) % 7
	return time.Date(year, month, day-sinceMonday, 0, 0, 0, 0, now.Location())
}

func orUnknown(guildName string) string {
	if guildName == "" {
		return "Unknown Guild"
	}
	return guildName
}
