package reports

import (
	"time"

	"github.com/google/uuid"
)

type OutcomeKind int

const (
	DELIVERED           OutcomeKind = iota
	SKIPPED_SILENTLY    OutcomeKind = iota
	SKIPPED_WITH_NOTICE OutcomeKind = iota
	FAILED              OutcomeKind = iota
)

var outcomeNames = map[OutcomeKind]string{
	DELIVERED:           "delivered",
	SKIPPED_SILENTLY:    "skipped_silently",
	SKIPPED_WITH_NOTICE: "skipped_with_notice",
	FAILED:              "failed",
}

func (kind OutcomeKind) String() string {
	if name, ok := outcomeNames[kind]; ok {
		return name
	}
	return "unknown"
}

// What happened to one guild during a batch run
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Delivered() Outcome                    { return Outcome{Kind: DELIVERED} }
func SkippedSilently(reason string) Outcome { return Outcome{Kind: SKIPPED_SILENTLY, Reason: reason} }
func SkippedWithNotice(reason string) Outcome {
	return Outcome{Kind: SKIPPED_WITH_NOTICE, Reason: reason}
}
func Failed(reason string) Outcome { return Outcome{Kind: FAILED, Reason: reason} }

// Guild is the snapshot of a joined guild taken when a run is triggered
type Guild struct {
	ID   string
	Name string
}

type GuildResult struct {
	Guild   Guild
	Outcome Outcome
}

// BatchRun is one execution of the weekly report over a guild snapshot.
// Results are in snapshot order
type BatchRun struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Results   []GuildResult
}

// Count the guilds that ended with the given outcome
func (run BatchRun) Count(kind OutcomeKind) int {
	count := 0
	for _, result := range run.Results {
		if result.Outcome.Kind == kind {
			count++
		}
	}
	return count
}
