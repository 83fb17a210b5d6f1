package cli

import (
	"context"
	"fmt"

	"scuttle/internal/bot"
	"scuttle/internal/common"
	"scuttle/internal/config"
	"scuttle/internal/httpserver"
	"scuttle/internal/metrics"
	"scuttle/internal/reports"
	"scuttle/internal/scheduler"
	"scuttle/internal/statsapi"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var register bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to discord, answer commands and send the weekly report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFrom(cmd), register)
		},
	}
	cmd.Flags().BoolVar(&register, "register-commands", false, "overwrite the global slash commands before connecting")
	return cmd
}

func newStatsApi(cfg config.Config) (*statsapi.StatsApi, error) {
	var restrictions []common.Restriction
	if cfg.StatsAPI.RateLimit > 0 {
		restrictions = append(restrictions, common.Restriction{
			Requests: cfg.StatsAPI.RateLimit,
			Duration: cfg.StatsAPI.RateLimitWindow,
		})
	}
	return statsapi.NewStatsApi(cfg.StatsAPI.URL, cfg.StatsAPI.Key, cfg.StatsAPI.Timeout, restrictions)
}

func newBot(cfg config.Config, api bot.Api) (*bot.Bot, error) {
	return bot.NewBot(bot.Options{
		Token:                 cfg.Discord.Token,
		OwnerId:               cfg.Discord.OwnerID,
		SupportLink:           cfg.Discord.SupportLink,
		Prod:                  cfg.IsProd(),
		GuildCountRefresh:     cfg.GuildCountRefresh,
		CacheCheckConcurrency: cfg.Reports.CacheCheckConcurrency,
		AuditChannels: bot.AuditChannels{
			Join:  cfg.Discord.JoinChannelID,
			Leave: cfg.Discord.LeaveChannelID,
			Error: cfg.Discord.ErrorChannelID,
			Logs:  cfg.Discord.LogsChannelID,
		},
	}, api)
}

// Redis guards the weekly run across replicas. Without it every
// process only guards against itself
func newGuard(cfg config.Config) (scheduler.RunGuard, func()) {
	if cfg.RedisAddr == "" {
		return scheduler.LocalGuard{}, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info().Str("addr", cfg.RedisAddr).Msg("Weekly report guarded by redis")
	return scheduler.NewRedisGuard(client), func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// Wire the stats API, the bot and the scheduler of the weekly report
func newScheduler(cfg config.Config) (*bot.Bot, *scheduler.Scheduler, func(), error) {

	api, err := newStatsApi(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	discordBot, err := newBot(cfg, api)
	if err != nil {
		return nil, nil, nil, err
	}
	batch := reports.NewBatch(api, discordBot, reports.BatchOptions{
		GuildConcurrency:      cfg.Reports.GuildConcurrency,
		CacheCheckConcurrency: cfg.Reports.CacheCheckConcurrency,
	})
	guard, closeGuard := newGuard(cfg)
	sched, err := scheduler.New(cfg.Reports.Cron, batch, discordBot.Guilds, guard)
	if err != nil {
		closeGuard()
		return nil, nil, nil, err
	}
	return discordBot, sched, closeGuard, nil
}

func runServe(ctx context.Context, cfg config.Config, register bool) error {

	discordBot, sched, closeGuard, err := newScheduler(cfg)
	if err != nil {
		return err
	}
	defer closeGuard()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	if register {
		if err := registerCommands(ctx, discordBot, cfg.Discord.ClientID, ""); err != nil {
			return err
		}
	}

	if err := discordBot.Open(); err != nil {
		return err
	}
	defer func() {
		if err := discordBot.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close discord session")
		}
	}()
	log.Info().Str("env", cfg.AppEnv).Msg("Bot connected")

	sched.Start()
	defer sched.Stop()

	serverErr := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		opts := []httpserver.Option{
			httpserver.WithLogger(log.Logger),
			httpserver.WithGatherer(prometheus.DefaultGatherer),
		}
		if cfg.HTTP.AdminToken != "" {
			opts = append(opts, httpserver.WithAdminTrigger(sched, cfg.HTTP.AdminToken, scheduler.ErrBusy))
		}
		server := httpserver.NewServer(opts...)
		go func() {
			serverErr <- server.ListenAndServe(ctx, cfg.HTTP.Addr)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}
