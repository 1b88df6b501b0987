package weighted_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilbagh/theunfairwheel/internal/models"
	"github.com/dilbagh/theunfairwheel/internal/weighted"
)

func participant(id string, spinsSinceLastWon int) models.Participant {
	return models.Participant{ID: id, Name: id, Active: true, SpinsSinceLastWon: spinsSinceLastWon}
}

func TestSum(t *testing.T) {
	p := []models.Participant{participant("a", 0), participant("b", 0), participant("c", 5)}
	assert.Equal(t, 1+1+6, weighted.Sum(p))
}

func TestPick_Boundaries(t *testing.T) {
	p := []models.Participant{participant("a", 0), participant("b", 0), participant("c", 5)}
	// weights: a=1 [0,1), b=1 [1,2), c=6 [2,8)
	assert.Equal(t, "a", weighted.Pick(p, 0).ID)
	assert.Equal(t, "b", weighted.Pick(p, 1).ID)
	assert.Equal(t, "c", weighted.Pick(p, 2).ID)
	assert.Equal(t, "c", weighted.Pick(p, 7).ID)
}

func TestPick_TieBrokenByInsertionOrder(t *testing.T) {
	p := []models.Participant{participant("first", 2), participant("second", 2)}
	// both weight 3; x=0 lands in first's [0,3) bucket
	require.Equal(t, "first", weighted.Pick(p, 0).ID)
}

// TestPick_Distribution exercises spec §8 property 10: a [0,0,5] input
// should produce winners roughly proportional to [1,1,6] across many
// trials.
func TestPick_Distribution(t *testing.T) {
	p := []models.Participant{participant("a", 0), participant("b", 0), participant("c", 5)}
	total := weighted.Sum(p)

	const trials = 20000
	counts := map[string]int{}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < trials; i++ {
		winner := weighted.Pick(p, rng.Intn(total))
		counts[winner.ID]++
	}

	// Expected ratio a:b:c is 1:1:6 out of 8 total weight.
	expectedA := float64(trials) * 1.0 / 8.0
	expectedC := float64(trials) * 6.0 / 8.0

	assert.InDelta(t, expectedA, float64(counts["a"]), expectedA*0.25)
	assert.InDelta(t, expectedA, float64(counts["b"]), expectedA*0.25)
	assert.InDelta(t, expectedC, float64(counts["c"]), expectedC*0.15)
}

func TestWeight_NeverBelowOne(t *testing.T) {
	p := participant("a", 0)
	assert.Equal(t, 1, p.Weight())

	p.SpinsSinceLastWon = -5 // shouldn't happen, but Weight() must not return <1
	assert.Equal(t, 1, p.Weight())
}
