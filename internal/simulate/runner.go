package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pong/pkg/logger"
)

// Sentinel kinds for simulation errors.
var (
	ErrUnhealthy        = errors.New("service is not healthy")
	ErrPoorAgreement    = errors.New("ratings do not recover the skill order")
	ErrNotEnoughPlayers = errors.New("at least two players are required")
)

// Run registers players, plays every fixture against the service and
// compares the resulting ratings with the hidden skills.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("simulate")

	if cfg.Players < 2 {
		return nil, ErrNotEnoughPlayers
	}
	workers := max(cfg.Workers, 1)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", workers),
		logger.Any("seed", cfg.Seed),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	var health struct {
		Status string `json:"status"`
	}
	if err := client.getJSON(ctx, "/healthz", &health); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	players, err := registerPlayers(ctx, client, generateSkills(rng, cfg.Players, cfg.Spread), workers)
	if err != nil {
		return nil, err
	}
	stats.PlayersRegistered = len(players)

	fixtures := generateFixtures(rng, players, cfg.Matches, time.Now().UTC().Add(-time.Duration(cfg.Matches)*time.Second))
	submitMatches(ctx, client, fixtures, workers, cfg.Verbose, stats)

	agreement, err := rankAgreement(ctx, client, players)
	if err != nil {
		return nil, err
	}
	stats.RankAgreement = agreement
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	if cfg.MinScore > 0 && agreement < cfg.MinScore {
		return stats, fmt.Errorf("%w: %.3f < %.3f", ErrPoorAgreement, agreement, cfg.MinScore)
	}
	return stats, nil
}

// forEach runs fn over items with a fixed number of workers.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(i int, item T)) {
	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				fn(i, items[i])
			}
		}()
	}

	for i := range items {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return
		case work <- i:
		}
	}
	close(work)
	wg.Wait()
}

func registerPlayers(ctx context.Context, client *HTTPClient, skills []float64, workers int) ([]Player, error) {
	run := uuid.NewString()[:8]
	players := make([]Player, len(skills))
	errs := make([]error, len(skills))

	forEach(ctx, workers, skills, func(i int, skill float64) {
		var p Player
		status, err := client.postJSON(ctx, "/players", map[string]string{"name": playerName(run, i)}, nil, &p)
		switch {
		case err != nil:
			errs[i] = err
		case status != http.StatusCreated:
			errs[i] = fmt.Errorf("register player %d: unexpected status %d", i, status)
		default:
			p.Skill = skill
			players[i] = p
		}
	})

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register players: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func submitMatches(ctx context.Context, client *HTTPClient, fixtures []Fixture, workers int, verbose bool, stats *Stats) {
	log := logger.Named("simulate")
	var submitted, recorded, duplicate, failed int64

	forEach(ctx, workers, fixtures, func(_ int, f Fixture) {
		atomic.AddInt64(&submitted, 1)
		status, err := client.postJSON(ctx, "/matches", f, map[string]string{idempotencyHeader: f.IdempotencyKey}, nil)
		switch {
		case err == nil && status == http.StatusCreated:
			atomic.AddInt64(&recorded, 1)
		case err == nil && status == http.StatusConflict:
			atomic.AddInt64(&duplicate, 1)
		default:
			atomic.AddInt64(&failed, 1)
			if verbose {
				log.Warn(ctx, "match submission failed",
					logger.Int("status", status),
					logger.Error(err),
				)
			}
		}
	})

	stats.MatchesSubmitted = int(submitted)
	stats.MatchesRecorded = int(recorded)
	stats.MatchesDuplicate = int(duplicate)
	stats.MatchesFailed = int(failed)
}

// rankAgreement correlates hidden skills with the ratings the service assigned.
func rankAgreement(ctx context.Context, client *HTTPClient, players []Player) (float64, error) {
	var all []rated
	if err := client.getJSON(ctx, "/players", &all); err != nil {
		return 0, fmt.Errorf("fetch ratings: %w", err)
	}
	byID := make(map[string]float64, len(all))
	for _, p := range all {
		byID[p.ID] = p.Rating
	}

	skills := make([]float64, 0, len(players))
	ratings := make([]float64, 0, len(players))
	for _, p := range players {
		r, ok := byID[p.ID]
		if !ok {
			return 0, fmt.Errorf("fetch ratings: player %s missing", p.ID)
		}
		skills = append(skills, p.Skill)
		ratings = append(ratings, r)
	}
	return spearman(skills, ratings), nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var matchesPerSecond float64
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Named("simulate").Info(ctx, "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesRecorded", stats.MatchesRecorded),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Float64("rankAgreement", stats.RankAgreement),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matchesPerSecond", matchesPerSecond),
	)
}
