package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scuttle/internal/common"
	"scuttle/internal/metrics"
	"scuttle/internal/reports"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Time given to a command to answer, discord drops follow ups after 15 minutes
const commandTimeout = 2 * time.Minute

// Period of the housekeeping loop
const mainCycle = time.Minute

type Options struct {
	Token                 string
	OwnerId               string
	SupportLink           string
	Prod                  bool
	GuildCountRefresh     time.Duration
	CacheCheckConcurrency int
	AuditChannels         AuditChannels
}

type Bot struct {
	discord            *discordgo.Session
	api                Api
	handlers           *Handlers
	audit              *AuditLog
	prod               bool
	guildCountExecutor *common.TimedExecutor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Guild bookkeeping to tell joins apart from the guilds sent on connection
	mu            sync.Mutex
	isReady       bool
	loaded        chan struct{}
	knownGuilds   map[string]struct{}
	pendingGuilds map[string]struct{}
}

func NewBot(options Options, api Api) (*Bot, error) {

	// Session
	discord, err := discordgo.New("Bot " + options.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuilds

	ctx, cancel := context.WithCancel(context.Background())
	bot := &Bot{
		discord:       discord,
		api:           api,
		handlers:      NewHandlers(api, reports.NewGenerator(api, options.CacheCheckConcurrency), options.OwnerId, options.SupportLink),
		prod:          options.Prod,
		ctx:           ctx,
		cancel:        cancel,
		loaded:        make(chan struct{}),
		knownGuilds:   map[string]struct{}{},
		pendingGuilds: map[string]struct{}{},
	}
	bot.audit = NewAuditLog(options.AuditChannels, bot.SendEmbeds)
	// Housekeeping for the guild count
	refresh := options.GuildCountRefresh
	if refresh <= 0 {
		refresh = time.Hour
	}
	bot.guildCountExecutor = common.NewTimedExecutor(refresh, bot.updateGuildCount)

	// Event handlers
	discord.AddHandler(bot.onReady)
	discord.AddHandler(bot.onGuildCreate)
	discord.AddHandler(bot.onGuildDelete)
	discord.AddHandler(bot.onInteractionCreate)

	return bot, nil
}

// Open the gateway connection and start the housekeeping loop
func (bot *Bot) Open() error {
	if err := bot.discord.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	bot.wg.Add(1)
	go bot.housekeeping()
	return nil
}

func (bot *Bot) Close() error {
	bot.cancel()
	bot.wg.Wait()
	return bot.discord.Close()
}

// WaitLoaded blocks until Ready was received and every guild it announced
// has been created in the state
func (bot *Bot) WaitLoaded(ctx context.Context) error {
	select {
	case <-bot.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterCommands overwrites the slash commands of the application, globally
// or for a single guild when guildId is set. It does not need an open gateway
func (bot *Bot) RegisterCommands(ctx context.Context, applicationId string, guildId string) ([]*discordgo.ApplicationCommand, error) {
	registered, err := bot.discord.ApplicationCommandBulkOverwrite(applicationId, guildId, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("register application commands: %w", err)
	}
	return registered, nil
}

// Guilds returns a snapshot of the guilds the bot currently belongs to
func (bot *Bot) Guilds() []reports.Guild {
	bot.discord.State.RLock()
	defer bot.discord.State.RUnlock()

	guilds := make([]reports.Guild, 0, len(bot.discord.State.Guilds))
	for _, guild := range bot.discord.State.Guilds {
		if guild.Unavailable {
			continue
		}
		guilds = append(guilds, reports.Guild{ID: guild.ID, Name: guild.Name})
	}
	return guilds
}

// ChannelExists reports if the channel is in the state of the session
func (bot *Bot) ChannelExists(channelId string) bool {
	_, err := bot.discord.State.Channel(channelId)
	return err == nil
}

func (bot *Bot) SendEmbeds(ctx context.Context, channelId string, embeds []*discordgo.MessageEmbed) error {
	return sendEmbeds(ctx, bot.discord, channelId, embeds)
}

func (bot *Bot) housekeeping() {
	defer bot.wg.Done()
	ticker := time.NewTicker(mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-bot.ctx.Done():
			return
		case <-ticker.C:
			if bot.prod && bot.isLoaded() {
				bot.guildCountExecutor.Execute()
			}
		}
	}
}

func (bot *Bot) isLoaded() bool {
	select {
	case <-bot.loaded:
		return true
	default:
		return false
	}
}

func (bot *Bot) guildCount() int {
	bot.discord.State.RLock()
	defer bot.discord.State.RUnlock()
	return len(bot.discord.State.Guilds)
}

// Send the guild count to the stats API, and to top.gg through it
func (bot *Bot) updateGuildCount() {

	ctx, cancel := context.WithTimeout(bot.ctx, 30*time.Second)
	defer cancel()

	count := bot.guildCount()
	shards := bot.discord.ShardCount
	if shards < 1 {
		shards = 1
	}
	if err := bot.api.UpdateGuildCount(ctx, count); err != nil {
		log.Error().Err(err).Msg("Failed to update guild count")
		return
	}
	if err := bot.api.UpdateTopggStats(ctx, count, shards); err != nil {
		log.Error().Err(err).Msg("Failed to update top.gg stats")
		return
	}
	log.Debug().Msg(fmt.Sprintf("Guild count updated to %d", count))
}

func (bot *Bot) onReady(discord *discordgo.Session, ready *discordgo.Ready) {

	log.Info().Msg(fmt.Sprintf("%s has connected to Discord", ready.User.String()))
	log.Info().Msg(fmt.Sprintf("%s is connected to %d guilds", ready.User.String(), len(ready.Guilds)))

	bot.mu.Lock()
	for _, guild := range ready.Guilds {
		bot.knownGuilds[guild.ID] = struct{}{}
		if !bot.isReady {
			bot.pendingGuilds[guild.ID] = struct{}{}
		}
	}
	bot.isReady = true
	bot.checkLoaded()
	bot.mu.Unlock()

	if bot.prod {
		bot.guildCountExecutor.Reset()
		go bot.guildCountExecutor.Execute()
	}
}

// Must hold bot.mu
func (bot *Bot) checkLoaded() {
	if bot.isReady && len(bot.pendingGuilds) == 0 && !bot.isLoaded() {
		close(bot.loaded)
	}
}

func (bot *Bot) onGuildCreate(discord *discordgo.Session, event *discordgo.GuildCreate) {

	// Guilds announced by Ready are not new
	bot.mu.Lock()
	delete(bot.pendingGuilds, event.ID)
	bot.checkLoaded()
	if event.Unavailable {
		bot.mu.Unlock()
		return
	}
	_, known := bot.knownGuilds[event.ID]
	bot.knownGuilds[event.ID] = struct{}{}
	joined := bot.isReady && !known
	bot.mu.Unlock()
	if !joined {
		return
	}

	guild := reports.Guild{ID: event.ID, Name: event.Name}
	log.Info().Str("guild", guild.ID).Msg(fmt.Sprintf("Joined new guild: %s", guild.Name))

	ctx, cancel := context.WithTimeout(bot.ctx, 30*time.Second)
	defer cancel()
	if err := bot.api.AddGuild(ctx, guild.ID, guild.Name); err != nil {
		log.Error().Err(err).Str("guild", guild.ID).Msg("Failed to register guild, it is likely already registered")
	}
	if bot.prod {
		bot.guildCountExecutor.Reset()
		bot.guildCountExecutor.Execute()
	}
	bot.audit.GuildJoin(ctx, guild)
}

func (bot *Bot) onGuildDelete(discord *discordgo.Session, event *discordgo.GuildDelete) {

	// An outage, not a leave
	if event.Unavailable {
		log.Warn().Str("guild", event.ID).Msg("Guild became unavailable")
		return
	}

	bot.mu.Lock()
	delete(bot.knownGuilds, event.ID)
	delete(bot.pendingGuilds, event.ID)
	bot.checkLoaded()
	bot.mu.Unlock()

	guild := reports.Guild{ID: event.ID}
	if event.BeforeDelete != nil {
		guild.Name = event.BeforeDelete.Name
	}
	log.Info().Str("guild", guild.ID).Msg(fmt.Sprintf("Left guild: %s", guild.Name))

	ctx, cancel := context.WithTimeout(bot.ctx, 30*time.Second)
	defer cancel()
	bot.audit.GuildLeave(ctx, guild)
}

func (bot *Bot) onInteractionCreate(discord *discordgo.Session, event *discordgo.InteractionCreate) {

	if event.Type != discordgo.InteractionApplicationCommand {
		return
	}

	parsed := Parse(event.ApplicationCommandData())
	req := Request{ParseResult: parsed, GuildId: event.GuildID, ChannelId: event.ChannelID}
	usage := Usage{Command: parsed.command, GuildId: event.GuildID, ChannelId: event.ChannelID}
	if event.Member != nil && event.Member.User != nil {
		req.UserId, usage.UserId, usage.UserTag = event.Member.User.ID, event.Member.User.ID, event.Member.User.String()
	} else if event.User != nil {
		req.UserId, usage.UserId, usage.UserTag = event.User.ID, event.User.ID, event.User.String()
	}
	if guild, err := discord.State.Guild(event.GuildID); err == nil {
		req.GuildName, usage.GuildName = guild.Name, guild.Name
	}
	if channel, err := discord.State.Channel(event.ChannelID); err == nil {
		usage.ChannelName = channel.Name
	}
	if parsed.subcommand != "" {
		usage.Command += " " + parsed.subcommand
	}

	commandLog := log.With().Str("command", usage.Command).Str("guild", usage.GuildId).Str("user", usage.UserTag).Logger()
	commandLog.Info().Msg("Command received")

	ctx, cancel := context.WithTimeout(bot.ctx, commandTimeout)
	defer cancel()

	isDeferred := false
	defer func() {
		if r := recover(); r != nil {
			commandLog.Error().Msg(fmt.Sprintf("Recovered from panic: %v", r))
			metrics.IncCommand(parsed.command, true)
			response := Response{embeds: CommandError(), ephemeral: true}
			var err error
			if isDeferred {
				err = response.FollowUp(ctx, discord, event.Interaction)
			} else {
				err = response.Reply(ctx, discord, event.Interaction)
			}
			if err != nil {
				commandLog.Error().Err(err).Msg("Failed to send error response")
			}
			bot.audit.Command(ctx, usage, response.embeds)
			bot.audit.Error(ctx, usage, fmt.Errorf("panic: %v", r))
		}
	}()

	// Answers that do not need the stats API are sent right away
	if parsed.parseid != PARSEID_OK || (guildOnly(parsed.command, parsed.subcommand) && req.GuildId == "") {
		embeds, _ := bot.handlers.Handle(ctx, req)
		if err := (Response{embeds: embeds, ephemeral: true}).Reply(ctx, discord, event.Interaction); err != nil {
			commandLog.Error().Err(err).Msg("Failed to reply")
		}
		metrics.IncCommand(parsed.command, false)
		return
	}

	if deferred(parsed.command) {
		if err := deferReply(ctx, discord, event.Interaction); err != nil {
			commandLog.Error().Err(err).Msg("Failed to defer reply")
			return
		}
		isDeferred = true
	}

	embeds, handleErr := bot.handlers.Handle(ctx, req)
	metrics.IncCommand(parsed.command, handleErr != nil)
	if handleErr != nil {
		commandLog.Error().Err(handleErr).Msg("Command failed")
		bot.audit.Error(ctx, usage, handleErr)
	}

	response := Response{embeds: embeds}
	var err error
	if isDeferred {
		err = response.FollowUp(ctx, discord, event.Interaction)
	} else {
		err = response.Reply(ctx, discord, event.Interaction)
	}
	if err != nil {
		commandLog.Error().Err(err).Msg("Failed to answer command")
		return
	}
	commandLog.Info().Msg("Executed successfully")
	bot.audit.Command(ctx, usage, embeds)
}
