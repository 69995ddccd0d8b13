// internal/game/answers.go
package game

import "github.com/google/uuid"

// AnswerSet records which players answered the active round and detects the moment
// everyone has. One AnswerSet lives for exactly one round.
type AnswerSet struct {
	answered map[uuid.UUID]struct{}
	complete bool
}

// NewAnswerSet returns an empty set for a new round.
func NewAnswerSet() *AnswerSet {
	return &AnswerSet{answered: make(map[uuid.UUID]struct{})}
}

// Submit records playerID and reports whether this submission completed the round,
// i.e. the answered count reached playerCount for the first time. Submitting the same
// player twice is a no-op and never completes the round a second time.
func (a *AnswerSet) Submit(playerID uuid.UUID, playerCount int) bool {
	a.answered[playerID] = struct{}{}
	return a.Check(playerCount)
}

// Check reports whether the round just became complete for the given roster size.
// It returns true at most once per AnswerSet; callers use it after the roster shrinks.
func (a *AnswerSet) Check(playerCount int) bool {
	if a.complete || playerCount <= 0 {
		return false
	}
	if len(a.answered) >= playerCount {
		a.complete = true
		return true
	}
	return false
}

// Remove forgets playerID, e.g. when the player leaves mid-round.
func (a *AnswerSet) Remove(playerID uuid.UUID) {
	delete(a.answered, playerID)
}

// Has reports whether playerID answered.
func (a *AnswerSet) Has(playerID uuid.UUID) bool {
	_, ok := a.answered[playerID]
	return ok
}

// Len returns the number of players that answered.
func (a *AnswerSet) Len() int {
	return len(a.answered)
}

// Complete reports whether the barrier has already fired.
func (a *AnswerSet) Complete() bool {
	return a.complete
}
