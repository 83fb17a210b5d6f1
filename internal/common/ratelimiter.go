package common

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Minimal time a delayed vital request sleeps before asking again
const minimalWait = 10 * time.Millisecond

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

type RateLimiter struct {
	mu                   sync.Mutex
	restrictions         []Restriction          // Restrictions to consider
	history              []time.Time            // History of requests
	duration             time.Duration          // Min duration to wait for all restrictions to be lifted
	pendingVitalRequests map[uuid.UUID]struct{} // Set of pending vital requests
	stopwatch            Stopwatch              // Backoff started when the server answers 429
}

func NewRateLimiter(restrictions []Restriction, backoff time.Duration) *RateLimiter {
	rl := &RateLimiter{}
	// Restrictions are just a copy of the provided ones
	rl.restrictions = append([]Restriction(nil), restrictions...)
	// Duration
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.pendingVitalRequests = make(map[uuid.UUID]struct{})
	rl.stopwatch = NewStopwatch(backoff)

	return rl
}

// Decide if a request is allowed.
// If the request is not allowed but vital, execution
// will block here until it is allowed or the context is done.
// Non vital requests are rejected straight away while vital ones are waiting
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) bool {

	// Give this request a unique identifier
	thisuuid := uuid.New()
	for {
		rl.mu.Lock()
		now := time.Now()
		// Trim history first
		rl.trim(now)
		// Check if the restrictions allow this request
		analysis := rl.analyse(now)
		if analysis.allowed && (vital || len(rl.pendingVitalRequests) == 0) {
			delete(rl.pendingVitalRequests, thisuuid)
			// Include this request in the history as it is allowed
			rl.history = append(rl.history, now)
			rl.mu.Unlock()
			return true
		}
		if !vital {
			rl.mu.Unlock()
			log.Warn().Bool("restricted", !analysis.allowed).Msg("Rejecting non vital request")
			return false
		}

		// Request is vital and not allowed, so it waits in the queue
		rl.pendingVitalRequests[thisuuid] = struct{}{}
		rl.mu.Unlock()
		wait := max(analysis.wait, minimalWait)
		log.Warn().Str("request", thisuuid.String()).Dur("wait", wait).Msg("Vital request delayed")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			rl.mu.Lock()
			delete(rl.pendingVitalRequests, thisuuid)
			rl.mu.Unlock()
			return false
		case <-timer.C:
		}
	}
}

// ReceivedRateLimit blocks every request until the backoff has passed
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.stopwatch.Start()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim(now time.Time) {
	// Times are stored in chronological order, so search from the end
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if now.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse(now time.Time) Analysis {

	// A recent 429 overrides every restriction
	if stopped, remaining := rl.stopwatch.Stopped(); !stopped {
		return Analysis{false, remaining}
	}

	// Merge the analyses of every restriction
	var wait time.Duration = 0
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, now)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
