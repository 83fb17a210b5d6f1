package bot

import (
	"context"
	"fmt"
	"time"

	"scuttle/internal/reports"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Channels of the support server where the bot reports what it does
type AuditChannels struct {
	Join  string
	Leave string
	Error string
	Logs  string
}

type embedSender func(ctx context.Context, channelId string, embeds []*discordgo.MessageEmbed) error

// AuditLog posts joins, leaves, command usage and command errors to the
// audit channels. A missing channel is logged and nothing is sent
type AuditLog struct {
	channels AuditChannels
	send     embedSender
	location *time.Location
	now      func() time.Time
}

func NewAuditLog(channels AuditChannels, send embedSender) *AuditLog {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Warn().Err(err).Msg("Time zone America/New_York not available, audit log uses UTC")
		location = time.UTC
	}
	return &AuditLog{channels: channels, send: send, location: location, now: time.Now}
}

func (audit *AuditLog) timestamp() string {
	return audit.now().In(audit.location).Format("2006-01-02 15:04:05 MST")
}

func (audit *AuditLog) post(ctx context.Context, kind string, channelId string, embeds ...*discordgo.MessageEmbed) {
	if channelId == "" {
		log.Debug().Msg(fmt.Sprintf("No channel configured for %s audit log", kind))
		return
	}
	if err := audit.send(ctx, channelId, embeds); err != nil {
		log.Error().Err(err).Str("channel", channelId).Msg(fmt.Sprintf("Failed to post %s audit log", kind))
	}
}

func (audit *AuditLog) GuildJoin(ctx context.Context, guild reports.Guild) {
	audit.post(ctx, "guild join", audit.channels.Join, &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("🟢 Scuttle has joined *'%s'*", guild.Name),
		Color:  reports.ColorGreen,
		Fields: []*discordgo.MessageEmbedField{{Name: "Date/Time", Value: audit.timestamp()}},
	})
}

func (audit *AuditLog) GuildLeave(ctx context.Context, guild reports.Guild) {
	audit.post(ctx, "guild leave", audit.channels.Leave, &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("🔴 Scuttle has left *'%s'*", orUnknown(guild.Name)),
		Color:  reports.ColorRed,
		Fields: []*discordgo.MessageEmbedField{{Name: "Date/Time", Value: audit.timestamp()}},
	})
}

// Where and by whom a command was used
type Usage struct {
	Command     string
	GuildId     string
	GuildName   string
	ChannelId   string
	ChannelName string
	UserId      string
	UserTag     string
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

// Command posts the usage of a command followed by the embeds of the reply
func (audit *AuditLog) Command(ctx context.Context, usage Usage, reply []*discordgo.MessageEmbed) {
	audit.post(ctx, "command", audit.channels.Logs, &discordgo.MessageEmbed{
		Title:       "🍀 Command Used",
		Description: "An interaction command has been used.",
		Color:       reports.ColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Command", Value: fmt.Sprintf("`%s`", usage.Command)},
			{Name: "Guild of Use", Value: fmt.Sprintf("`%s` (%s)", orNA(usage.GuildName), orNA(usage.GuildId))},
			{Name: "Channel of Use", Value: fmt.Sprintf("`%s` (%s)", orNA(usage.ChannelName), orNA(usage.ChannelId))},
			{Name: "Command User", Value: fmt.Sprintf("`%s` (%s)", usage.UserTag, usage.UserId)},
		},
	})
	if len(reply) > 0 {
		audit.post(ctx, "command reply", audit.channels.Logs, reply...)
	}
}

// Error posts an unexpected failure of a command
func (audit *AuditLog) Error(ctx context.Context, usage Usage, err error) {
	audit.post(ctx, "error", audit.channels.Error, &discordgo.MessageEmbed{
		Title:       "⚠️ Flagged Error!",
		Description: "An error occurred while executing a slash command.",
		Color:       reports.ColorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Error Command", Value: fmt.Sprintf("`%s`", usage.Command)},
			{Name: "Error Message", Value: fmt.Sprintf("`%s`", truncate(err.Error(), 1000))},
			{Name: "Error Timestamp", Value: fmt.Sprintf("`%s`", audit.timestamp())},
			{Name: "Error Guild", Value: fmt.Sprintf("`%s` (%s)", orNA(usage.GuildName), orNA(usage.GuildId))},
			{Name: "Error User", Value: fmt.Sprintf("`%s` (%s)", usage.UserTag, usage.UserId)},
			{Name: "Error Command Channel", Value: fmt.Sprintf("`%s` (%s)", orNA(usage.ChannelName), orNA(usage.ChannelId))},
		},
	})
}

// Embed field values are limited to 1024 characters
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
