package reports

import (
	"context"
	"fmt"
	"sync"

	"scuttle/internal/statsapi"

	"github.com/rs/zerolog/log"
)

type CacheApi interface {
	IsSummonerCached(ctx context.Context, puuid statsapi.Puuid, name string, rangeDays int) (bool, error)
}

// Which summoners of a roster already have stats computed by the service.
// Summoners whose check failed are only counted
type CacheStatus struct {
	Cached    []string
	NotCached []string
	Failed    int
}

type CacheChecker struct {
	api         CacheApi
	concurrency int
}

func NewCacheChecker(api CacheApi, concurrency int) *CacheChecker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CacheChecker{api: api, concurrency: concurrency}
}

// Check asks for the cache status of every summoner of the roster.
// Both lists keep the order of the roster
func (checker *CacheChecker) Check(ctx context.Context, roster []statsapi.Summoner) CacheStatus {

	type checkResult struct {
		cached bool
		err    error
	}
	results := make([]checkResult, len(roster))

	semaphore := make(chan struct{}, checker.concurrency)
	var wg sync.WaitGroup
	for i, summoner := range roster {

		wg.Add(1)
		go func(i int, summoner statsapi.Summoner) {

			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results[i] = checkResult{err: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()

			cached, err := checker.api.IsSummonerCached(ctx, summoner.Puuid, summoner.Name, 0)
			results[i] = checkResult{cached: cached, err: err}

		}(i, summoner)

	}
	wg.Wait()

	// Gather in roster order
	status := CacheStatus{Cached: []string{}, NotCached: []string{}}
	for i, result := range results {
		summoner := roster[i]
		switch {
		case result.err != nil:
			log.Error().Err(result.err).Str("puuid", string(summoner.Puuid)).Str("name", summoner.Name).Msg("Could not check summoner cache")
			status.Failed++
		case result.cached:
			status.Cached = append(status.Cached, summoner.Name)
		default:
			status.NotCached = append(status.NotCached, summoner.Name)
		}
	}
	log.Debug().Msg(fmt.Sprintf("Checked %d summoners: %d cached, %d not cached, %d failed", len(roster), len(status.Cached), len(status.NotCached), status.Failed))
	return status
}
