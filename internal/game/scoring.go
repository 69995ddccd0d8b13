// internal/game/scoring.go
package game

import "math"

const (
	// MaxPoints is awarded for a correct answer given instantly.
	MaxPoints = 100.0
	// MinCorrectPoints is the floor for a correct answer, however late.
	MinCorrectPoints = 0.1
)

// Score returns the points for one answer. Incorrect answers score 0. Correct answers
// decay linearly from MaxPoints at elapsedMs=0 to MinCorrectPoints at
// elapsedMs>=roundDurationMs and never drop below the floor.
//
// A negative elapsedMs is treated as 0. A non-positive roundDurationMs means the round
// has no time limit, so every correct answer is worth MaxPoints.
func Score(isCorrect bool, elapsedMs, roundDurationMs int64) float64 {
	if !isCorrect {
		return 0
	}
	if roundDurationMs <= 0 {
		return MaxPoints
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	points := MaxPoints * (1 - float64(elapsedMs)/float64(roundDurationMs))
	return math.Max(MinCorrectPoints, points)
}
