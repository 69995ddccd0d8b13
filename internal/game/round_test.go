// internal/game/round_test.go
package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *RoundGenerator {
	return NewRoundGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// buildPool returns one message per author id, plus extra messages by the first author.
func buildPool(authors []string, extra int) []models.MessageRecord {
	pool := make([]models.MessageRecord, 0, len(authors)+extra)
	for i, a := range authors {
		pool = append(pool, models.MessageRecord{
			ID:         fmt.Sprintf("m%d", i),
			Content:    "message from " + a,
			AuthorID:   a,
			AuthorName: "name-" + a,
		})
	}
	for i := 0; i < extra; i++ {
		pool = append(pool, models.MessageRecord{
			ID:         fmt.Sprintf("x%d", i),
			Content:    "another one",
			AuthorID:   authors[0],
			AuthorName: "name-" + authors[0],
		})
	}
	return pool
}

func countOption(opts []models.Option, authorID string) int {
	n := 0
	for _, o := range opts {
		if o.AuthorID == authorID {
			n++
		}
	}
	return n
}

// TestNextRoundEnoughAuthors checks that with >= N authors every option is distinct
// and the correct author appears exactly once.
func TestNextRoundEnoughAuthors(t *testing.T) {
	pool := buildPool([]string{"a", "b", "c", "d", "e", "f", "g"}, 5)
	for seed := uint64(0); seed < 200; seed++ {
		g := seeded(seed)
		for _, n := range []int{2, 4, 7} {
			round, remaining, err := g.NextRound(pool, n)
			require.NoError(t, err)
			require.Len(t, round.Options, n)
			assert.Len(t, remaining, len(pool)-1)

			seen := map[string]bool{}
			for _, o := range round.Options {
				assert.False(t, seen[o.AuthorID], "author %s listed twice", o.AuthorID)
				seen[o.AuthorID] = true
			}
			assert.Equal(t, 1, countOption(round.Options, round.Message.AuthorID))
		}
	}
}

// TestNextRoundPadsWithCorrectAuthor covers pools with fewer than N distinct authors.
func TestNextRoundPadsWithCorrectAuthor(t *testing.T) {
	pool := buildPool([]string{"a", "b"}, 3)
	for seed := uint64(0); seed < 50; seed++ {
		round, _, err := seeded(seed).NextRound(pool, 4)
		require.NoError(t, err)
		require.Len(t, round.Options, 4)

		correct := round.Message.AuthorID
		assert.Equal(t, 3, countOption(round.Options, correct), "filler slots should repeat the correct author")
		for _, o := range round.Options {
			if o.AuthorID == correct {
				assert.Equal(t, round.Message.AuthorName, o.AuthorName)
			}
		}
	}
}

func TestNextRoundSingleAuthor(t *testing.T) {
	pool := buildPool([]string{"solo"}, 2)
	round, remaining, err := seeded(1).NextRound(pool, 4)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	assert.Equal(t, 4, countOption(round.Options, "solo"))
}

func TestNextRoundEmptyPool(t *testing.T) {
	_, _, err := seeded(1).NextRound(nil, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestNextRoundRejectsBadOptionCount(t *testing.T) {
	pool := buildPool([]string{"a", "b"}, 0)
	_, _, err := seeded(1).NextRound(pool, 11)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, _, err = seeded(1).NextRound(pool, 1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestNextRoundDoesNotMutatePool(t *testing.T) {
	pool := buildPool([]string{"a", "b", "c"}, 0)
	snapshot := append([]models.MessageRecord(nil), pool...)
	_, _, err := seeded(3).NextRound(pool, 3)
	require.NoError(t, err)
	assert.Equal(t, snapshot, pool)
}

// TestNextRoundDeterministic verifies the injected source fully determines selection
// and ordering.
func TestNextRoundDeterministic(t *testing.T) {
	pool := buildPool([]string{"a", "b", "c", "d", "e"}, 0)
	r1, _, err := seeded(42).NextRound(pool, 4)
	require.NoError(t, err)
	r2, _, err := seeded(42).NextRound(pool, 4)
	require.NoError(t, err)
	assert.Equal(t, r1.Message, r2.Message)
	assert.Equal(t, r1.Options, r2.Options)
}

// TestFourAuthorGame plays the A,B,C,D scenario to exhaustion.
func TestFourAuthorGame(t *testing.T) {
	pool := buildPool([]string{"A", "B", "C", "D"}, 0)
	g := seeded(7)

	selected := map[string]bool{}
	for i := 0; i < 4; i++ {
		before := len(pool)
		round, remaining, err := g.NextRound(pool, 4)
		require.NoError(t, err)
		assert.Len(t, remaining, before-1)
		assert.False(t, selected[round.Message.ID], "message %s selected twice", round.Message.ID)
		selected[round.Message.ID] = true

		assert.Len(t, round.Options, 4)
		if i == 0 {
			ids := []string{}
			for _, o := range round.Options {
				ids = append(ids, o.AuthorID)
			}
			assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, ids)
			assert.Equal(t, 1, countOption(round.Options, round.Message.AuthorID))
		} else {
			// The shrinking pool has fewer other authors, so the correct one pads.
			assert.Equal(t, 1+i, countOption(round.Options, round.Message.AuthorID))
		}
		pool = remaining
	}
	assert.Empty(t, pool)

	_, _, err := g.NextRound(pool, 4)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

// TestCorrectPositionIsNotFixed guards against positional bias in the final shuffle.
func TestCorrectPositionIsNotFixed(t *testing.T) {
	pool := buildPool([]string{"a", "b", "c", "d"}, 0)
	positions := map[int]int{}
	g := seeded(99)
	for i := 0; i < 400; i++ {
		round, _, err := g.NextRound(pool, 4)
		require.NoError(t, err)
		for idx, o := range round.Options {
			if o.AuthorID == round.Message.AuthorID {
				positions[idx]++
			}
		}
	}
	assert.Len(t, positions, 4, "correct answer should land in every slot over many rounds")
}

func TestCountAuthors(t *testing.T) {
	assert.Equal(t, 3, CountAuthors(buildPool([]string{"a", "b", "c"}, 4)))
	assert.Equal(t, 0, CountAuthors(nil))
}
