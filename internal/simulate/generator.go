package simulate

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pong/internal/domain/rating"
)

// generateSkills draws n hidden skills around the default rating.
func generateSkills(rng *rand.Rand, n int, spread float64) []float64 {
	skills := make([]float64, n)
	for i := range skills {
		skills[i] = 1000 + rng.NormFloat64()*spread
	}
	return skills
}

// generateFixtures pairs random distinct players. The winner is drawn from
// the Elo expectation of the hidden skills, so a perfect rating system
// would end up ordering players by skill.
func generateFixtures(rng *rand.Rand, players []Player, n int, start time.Time) []Fixture {
	if len(players) < 2 {
		return nil
	}
	fixtures := make([]Fixture, n)
	for i := range fixtures {
		a := rng.IntN(len(players))
		b := rng.IntN(len(players) - 1)
		if b >= a {
			b++
		}
		pa, pb := players[a], players[b]

		winner := pb.ID
		if rng.Float64() < rating.ExpectedOutcome(pa.Skill, pb.Skill) {
			winner = pa.ID
		}
		fixtures[i] = Fixture{
			PlayerAID:      pa.ID,
			PlayerBID:      pb.ID,
			WinnerID:       winner,
			PlayedAt:       start.Add(time.Duration(i) * time.Second),
			IdempotencyKey: uuid.NewString(),
		}
	}
	return fixtures
}

// playerName returns a unique display name for the i-th simulated player.
func playerName(run string, i int) string {
	return fmt.Sprintf("sim-%s-%04d", run, i)
}
