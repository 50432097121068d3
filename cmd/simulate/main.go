package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/pong/internal/simulate"
	"github.com/okian/pong/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 50
	defaultMatches     = 5000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultSpread      = 200
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL  = flag.String("url", envOr("PONG_SIMULATE_URL", "http://localhost:9080"), "Base URL of the service")
		players  = flag.Int("players", defaultPlayers, "Number of players to register")
		matches  = flag.Int("matches", defaultMatches, "Number of matches to play")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for skills and outcomes")
		spread   = flag.Float64("spread", defaultSpread, "Standard deviation of hidden skills")
		minScore = flag.Float64("min-agreement", 0, "Exit non-zero when rank agreement is below this value")
		format   = flag.String("log-format", "text", "Log format: text or json")
		verbose  = flag.Bool("verbose", false, "Log every failed request")
	)
	flag.Parse()

	if err := logger.InitWithFormat(*format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	_, err := simulate.Run(ctx, &simulate.Config{
		BaseURL:  *baseURL,
		Players:  *players,
		Matches:  *matches,
		Workers:  *workers,
		Timeout:  *timeout,
		Seed:     *seed,
		Spread:   *spread,
		MinScore: *minScore,
		Verbose:  *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
