package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scuttle/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Days covered by the weekly report
const WEEKLY_RANGE_DAYS = 7

var errPanic = errors.New("panic in guild pipeline")

// ChannelSender is the part of the chat session the batch writes to
type ChannelSender interface {
	// ChannelExists reports if the session can see the channel
	ChannelExists(channelId string) bool
	// SendEmbeds posts all the embeds as a single message
	SendEmbeds(ctx context.Context, channelId string, embeds []*discordgo.MessageEmbed) error
}

type BatchOptions struct {
	GuildConcurrency      int
	CacheCheckConcurrency int
}

// Batch sends the weekly report to every guild of a snapshot. Whatever happens
// to one guild is contained in its GuildResult
type Batch struct {
	resolver    *ChannelResolver
	generator   *Generator
	sender      ChannelSender
	concurrency int
}

func NewBatch(api Api, sender ChannelSender, options BatchOptions) *Batch {
	concurrency := options.GuildConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		resolver:    NewChannelResolver(api),
		generator:   NewGenerator(api, options.CacheCheckConcurrency),
		sender:      sender,
		concurrency: concurrency,
	}
}

// Run processes every guild once. It never fails: the outcome of each guild
// is in the returned run, in snapshot order
func (batch *Batch) Run(ctx context.Context, guilds []Guild) BatchRun {

	run := BatchRun{ID: uuid.New(), StartedAt: time.Now(), Results: make([]GuildResult, len(guilds))}
	runLog := log.With().Str("run", run.ID.String()).Logger()
	runLog.Info().Msg(fmt.Sprintf("Starting weekly report for %d guilds", len(guilds)))

	semaphore := make(chan struct{}, batch.concurrency)
	var wg sync.WaitGroup
	for i, guild := range guilds {

		wg.Add(1)
		go func(i int, guild Guild) {

			defer wg.Done()
			run.Results[i] = GuildResult{Guild: guild, Outcome: Failed("not processed")}

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				run.Results[i].Outcome = Failed("run cancelled")
				return
			}
			defer func() { <-semaphore }()

			// Last line of defence, deliver already recovers its own panics
			defer func() {
				if r := recover(); r != nil {
					runLog.Error().Str("guild", guild.ID).Msg(fmt.Sprintf("Recovered from panic: %v", r))
					run.Results[i].Outcome = Failed("panic")
				}
			}()

			run.Results[i].Outcome = batch.processGuild(ctx, run.ID, guild)

		}(i, guild)

	}
	wg.Wait()

	run.Duration = time.Since(run.StartedAt)
	metrics.ReportRunSeconds.Observe(run.Duration.Seconds())
	for _, result := range run.Results {
		metrics.ReportGuildOutcomes.WithLabelValues(result.Outcome.Kind.String()).Inc()
	}

	runLog.Info().
		Int("delivered", run.Count(DELIVERED)).
		Int("skipped_silently", run.Count(SKIPPED_SILENTLY)).
		Int("skipped_with_notice", run.Count(SKIPPED_WITH_NOTICE)).
		Int("failed", run.Count(FAILED)).
		Dur("duration", run.Duration).
		Msg("Weekly report finished")
	return run
}

func (batch *Batch) processGuild(ctx context.Context, runId uuid.UUID, guild Guild) Outcome {

	guildLog := log.With().Str("run", runId.String()).Str("guild", guild.ID).Str("guild_name", guild.Name).Logger()
	guildLog.Debug().Msg("Fetching main reporting channel")

	// Channel
	channelId, err := batch.resolver.Resolve(ctx, guild.ID)
	if errors.Is(err, ErrNotConfigured) {
		guildLog.Info().Msg("No main channel set, skipping")
		return SkippedSilently("channel not configured")
	}
	if err != nil {
		guildLog.Error().Err(err).Msg("Could not fetch main channel, skipping")
		return SkippedSilently("channel lookup failed")
	}
	if !batch.sender.ChannelExists(channelId) {
		guildLog.Info().Str("channel", channelId).Msg("Main channel is set but cannot be found, skipping")
		return SkippedSilently("channel not found")
	}

	outcome, err := batch.deliver(ctx, guildLog, guild, channelId)
	if err == nil {
		return outcome
	}

	// Unexpected failure: tell the guild, without details
	guildLog.Error().Err(err).Msg("Error sending weekly report")
	if sendErr := batch.sender.SendEmbeds(ctx, channelId, []*discordgo.MessageEmbed{ErrorNotice()}); sendErr != nil {
		guildLog.Error().Err(sendErr).Msg("Failed to send error notice")
	}
	return Failed(failureReason(err))
}

// Everything that happens once the channel is known. A panic is returned as an error
func (batch *Batch) deliver(ctx context.Context, guildLog zerolog.Logger, guild Guild, channelId string) (outcome Outcome, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	// Loading notice, not critical
	if err := batch.sender.SendEmbeds(ctx, channelId, []*discordgo.MessageEmbed{GeneratingNotice()}); err != nil {
		guildLog.Warn().Err(err).Msg("Could not send generating notice")
	}

	summary, err := batch.generator.Generate(ctx, guild, WEEKLY_RANGE_DAYS)
	switch {
	case errors.Is(err, ErrNoData):
		guildLog.Info().Msg("No report found, suggesting to add summoners")
		if err := batch.sender.SendEmbeds(ctx, channelId, []*discordgo.MessageEmbed{NoDataNotice()}); err != nil {
			return Outcome{}, fmt.Errorf("send no data notice: %w", err)
		}
		return SkippedWithNotice("no report data"), nil
	case errors.Is(err, ErrRosterUnavailable):
		guildLog.Error().Err(err).Msg("Error fetching summoners")
		return Failed("roster unavailable"), nil
	case err != nil:
		return Outcome{}, err
	}

	if summary.Status.Failed > 0 {
		guildLog.Warn().Int("failed", summary.Status.Failed).Msg("Some summoners were left out of the report")
	}

	if err := batch.sender.SendEmbeds(ctx, channelId, summary.Embeds()); err != nil {
		return Outcome{}, fmt.Errorf("send report: %w", err)
	}
	guildLog.Info().Msg("Report sent successfully")
	return Delivered(), nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errPanic):
		return "panic"
	case errors.Is(err, ErrUpstream):
		return "report unavailable"
	default:
		return "send failed"
	}
}
