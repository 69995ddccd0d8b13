// internal/game/round.go
package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/models"
)

// RoundGenerator builds rounds from a lobby's remaining message pool.
// It is not safe for concurrent use; a lobby owns one and calls it under its lock.
type RoundGenerator struct {
	rng *rand.Rand
}

// NewRoundGenerator returns a generator drawing from rng. A nil rng gets a randomly
// seeded PCG source; tests pass a fixed seed to get reproducible selections.
func NewRoundGenerator(rng *rand.Rand) *RoundGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RoundGenerator{rng: rng}
}

// NextRound picks a message uniformly at random from pool and builds its option list.
// It returns the round and the pool without the selected message; pool itself is not
// modified.
//
// Distractors are the distinct authors in pool other than the selected message's
// author, shuffled, truncated to optionCount-1. When there are too few, the correct
// author is repeated as filler, so the list can contain the correct author more than
// once. Clients answer by author id, so a duplicate scores the same as the original.
// The final list is shuffled again so the correct author's position carries no signal.
func (g *RoundGenerator) NextRound(pool []models.MessageRecord, optionCount int) (models.Round, []models.MessageRecord, error) {
	if len(pool) == 0 {
		return models.Round{}, pool, apperrors.InsufficientData("no messages left to build a round from")
	}
	if optionCount == 0 {
		optionCount = models.DefaultOptionCount
	}
	if optionCount < models.MinOptionCount || optionCount > models.MaxOptionCount {
		return models.Round{}, pool, apperrors.Validation("option count must be between %d and %d", models.MinOptionCount, models.MaxOptionCount)
	}

	idx := g.rng.IntN(len(pool))
	selected := pool[idx]

	remaining := make([]models.MessageRecord, 0, len(pool)-1)
	remaining = append(remaining, pool[:idx]...)
	remaining = append(remaining, pool[idx+1:]...)

	distractors := distinctAuthors(pool, selected.AuthorID)
	g.rng.Shuffle(len(distractors), func(i, j int) {
		distractors[i], distractors[j] = distractors[j], distractors[i]
	})
	if len(distractors) > optionCount-1 {
		distractors = distractors[:optionCount-1]
	}

	correct := models.Option{AuthorID: selected.AuthorID, AuthorName: selected.AuthorName}
	options := make([]models.Option, 0, optionCount)
	options = append(options, correct)
	options = append(options, distractors...)
	for len(options) < optionCount {
		options = append(options, correct)
	}
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	roundID, _ := uuid.NewRandom()
	return models.Round{
		ID:      roundID,
		Message: selected,
		Options: options,
	}, remaining, nil
}

// distinctAuthors returns one option per author in pool, in first-seen order,
// skipping exclude. The display name is the one on the author's first message.
func distinctAuthors(pool []models.MessageRecord, exclude string) []models.Option {
	seen := make(map[string]struct{}, len(pool))
	out := make([]models.Option, 0)
	for _, m := range pool {
		if m.AuthorID == exclude {
			continue
		}
		if _, ok := seen[m.AuthorID]; ok {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		out = append(out, models.Option{AuthorID: m.AuthorID, AuthorName: m.AuthorName})
	}
	return out
}

// CountAuthors returns the number of distinct authors in pool.
func CountAuthors(pool []models.MessageRecord) int {
	seen := make(map[string]struct{}, len(pool))
	for _, m := range pool {
		seen[m.AuthorID] = struct{}{}
	}
	return len(seen)
}
