package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"scuttle/internal/bot"
	"scuttle/internal/reports"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func registerCommandsCmd() *cobra.Command {
	var guildId string
	cmd := &cobra.Command{
		Use:   "register-commands",
		Short: "Overwrite the slash commands of the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			api, err := newStatsApi(cfg)
			if err != nil {
				return err
			}
			discordBot, err := newBot(cfg, api)
			if err != nil {
				return err
			}
			return registerCommands(cmd.Context(), discordBot, cfg.Discord.ClientID, guildId)
		},
	}
	cmd.Flags().StringVar(&guildId, "guild", "", "register for a single guild instead of globally")
	return cmd
}

func registerCommands(ctx context.Context, discordBot *bot.Bot, clientId string, guildId string) error {
	if clientId == "" {
		return errors.New("CLIENT_ID is required to register commands")
	}
	registered, err := discordBot.RegisterCommands(ctx, clientId, guildId)
	if err != nil {
		return err
	}
	log.Info().Int("commands", len(registered)).Str("guild", guildId).Msg("Slash commands registered")
	return nil
}

func weeklyReportCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "weekly-report",
		Short: "Send the weekly report to every guild now and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			discordBot, sched, closeGuard, err := newScheduler(configFrom(cmd))
			if err != nil {
				return err
			}
			defer closeGuard()

			if err := discordBot.Open(); err != nil {
				return err
			}
			defer discordBot.Close()

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			if err := discordBot.WaitLoaded(waitCtx); err != nil {
				return fmt.Errorf("waiting for guilds: %w", err)
			}

			run, err := sched.RunOnce(ctx)
			if err != nil {
				return err
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", time.Minute, "how long to wait for the guilds to load")
	return cmd
}

func printRun(out io.Writer, run reports.BatchRun) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle(fmt.Sprintf("Weekly report %s", run.ID))
	tw.AppendHeader(table.Row{"Guild ID", "Guild", "Outcome", "Reason"})
	for _, result := range run.Results {
		tw.AppendRow(table.Row{result.Guild.ID, result.Guild.Name, result.Outcome.Kind, result.Outcome.Reason})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d guilds in %s", len(run.Results), run.Duration.Round(time.Millisecond)),
		fmt.Sprintf("%d delivered", run.Count(reports.DELIVERED)), fmt.Sprintf("%d failed", run.Count(reports.FAILED))})
	tw.Render()
}
