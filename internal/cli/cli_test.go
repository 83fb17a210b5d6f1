package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"scuttle/internal/config"
	"scuttle/internal/reports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestPrintRun(t *testing.T) {
	run := reports.BatchRun{
		ID:       uuid.New(),
		Duration: 1500 * time.Millisecond,
		Results: []reports.GuildResult{
			{Guild: reports.Guild{ID: "1", Name: "Alpha"}, Outcome: reports.Delivered()},
			{Guild: reports.Guild{ID: "2", Name: "Beta"}, Outcome: reports.SkippedSilently("channel not configured")},
			{Guild: reports.Guild{ID: "3", Name: "Gamma"}, Outcome: reports.Failed("send failed")},
		},
	}
	var out bytes.Buffer
	printRun(&out, run)

	text := out.String()
	for _, want := range []string{run.ID.String(), "Alpha", "delivered", "skipped_silently", "channel not configured", "send failed", "1 DELIVERED", "1 FAILED"} {
		if !strings.Contains(strings.ToLower(text), strings.ToLower(want)) {
			t.Errorf("output does not contain %q:\n%s", want, text)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogger(config.Config{AppEnv: config.ENV_PROD})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("prod level = %s", zerolog.GlobalLevel())
	}
	setupLogger(config.Config{AppEnv: config.ENV_DEV})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("dev level = %s", zerolog.GlobalLevel())
	}
	setupLogger(config.Config{AppEnv: config.ENV_PROD, LogLevel: "WARN"})
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("explicit level = %s", zerolog.GlobalLevel())
	}
	setupLogger(config.Config{AppEnv: config.ENV_PROD, LogLevel: "loud"})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("invalid level = %s", zerolog.GlobalLevel())
	}
}

func TestRegisterCommandsNeedsClientId(t *testing.T) {
	if err := registerCommands(context.Background(), nil, "", ""); err == nil || !strings.Contains(err.Error(), "CLIENT_ID") {
		t.Errorf("error = %v", err)
	}
}
