// Package cli holds the commands of the scuttle binary.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"scuttle/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type cfgKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scuttle",
		Short:         "Scuttle discord bot",
		Long:          "Scuttle answers League of Legends stat commands on discord and posts a weekly report to every guild that enabled a channel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFrom(cmd), false)
		},
	}
	root.AddCommand(serveCmd())
	root.AddCommand(registerCommandsCmd())
	root.AddCommand(weeklyReportCmd())
	return root
}

// Execute runs the command line until ctx is done
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func configFrom(cmd *cobra.Command) config.Config {
	cfg, _ := cmd.Context().Value(cfgKey{}).(config.Config)
	return cfg
}

// Human readable output in dev, JSON lines otherwise
func setupLogger(cfg config.Config) {

	level := zerolog.InfoLevel
	if cfg.IsDev() {
		level = zerolog.DebugLevel
	}
	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, using %s\n", cfg.LogLevel, level)
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDev() {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
