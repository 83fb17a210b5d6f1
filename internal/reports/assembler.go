package reports

import (
	"context"
	"errors"
	"fmt"

	"scuttle/internal/statsapi"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoData means the service has no report for the guild and range.
	// It is shown to users, it is not a failure
	ErrNoData = errors.New("no report data")
	// ErrUpstream covers every other reason the report could not be obtained
	ErrUpstream = errors.New("report unavailable")
)

type ReportApi interface {
	GetPrettyReport(ctx context.Context, guildId string, rangeDays int, queueType string) (statsapi.Report, error)
}

type Assembler struct {
	api ReportApi
}

func NewAssembler(api ReportApi) *Assembler {
	return &Assembler{api: api}
}

// Assemble fetches the comparative report of a guild and keeps only the rows
// that have both a top value and a top name, in the order the service sent them.
// Only a 404 is ErrNoData: a report left without rows is still a report
func (assembler *Assembler) Assemble(ctx context.Context, guildId string, rangeDays int, queueType string) (statsapi.Report, error) {

	if rangeDays < 1 {
		return nil, fmt.Errorf("%w: range of %d days is not valid", ErrUpstream, rangeDays)
	}

	report, err := assembler.api.GetPrettyReport(ctx, guildId, rangeDays, queueType)
	if errors.Is(err, statsapi.ErrNotFound) {
		return nil, fmt.Errorf("guild %s: %w", guildId, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w: %w", guildId, ErrUpstream, err)
	}

	rows := make(statsapi.Report, 0, len(report))
	for _, row := range report {
		if row.TopValue == "" || row.TopName == "" {
			log.Debug().Str("guild", guildId).Msg(fmt.Sprintf("Dropping incomplete report row %q", row.Metric))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
