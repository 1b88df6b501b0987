// Package weighted implements the biased random draw spec §4.1 calls "the
// sole source of bias": participants who haven't won recently are weighted
// up, recent winners are weighted down. It is intentionally unfair.
package weighted

import "github.com/dilbagh/theunfairwheel/internal/models"

// Weigher is anything that can report its weight; models.Participant
// satisfies it. Sum and Pick take []models.Participant directly, so other
// Weigher implementations cannot be passed to them.
type Weigher interface {
	Weight() int
}

// Sum returns the total weight across p, per spec §4.1 step 2.
func Sum(p []models.Participant) int {
	total := 0
	for _, x := range p {
		total += x.Weight()
	}
	return total
}

// Pick draws a winner from p given a uniform sample x in [0, Sum(p)).
// Ties at a weight boundary resolve to the earlier entry in p, matching
// insertion order per spec §4.1 step 3. Callers are responsible for
// drawing x themselves (via math/rand or a seeded source) so the walk
// itself stays deterministic and testable.
func Pick(p []models.Participant, x int) models.Participant {
	cum := 0
	for _, cand := range p {
		cum += cand.Weight()
		if x < cum {
			return cand
		}
	}
	// Only reachable if x >= Sum(p), which callers must not do; fall back
	// to the last entry rather than panic.
	return p[len(p)-1]
}
