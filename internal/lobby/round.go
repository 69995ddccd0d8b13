// internal/lobby/round.go
package lobby

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/game"
	"github.com/jason-s-yu/whosaid/internal/metrics"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
)

// StartGame moves the lobby from Waiting to GameStarting and schedules the first round.
func (l *Lobby) StartGame(callerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == models.StateClosed {
		return apperrors.State("lobby is closed")
	}
	if callerID != l.creatorID {
		return apperrors.Authorization("only the lobby creator can start the game")
	}
	if l.state != models.StateWaiting {
		return apperrors.State("game has already started")
	}
	if len(l.players) == 0 {
		return apperrors.State("at least one player must join before starting")
	}
	if len(l.pool) == 0 {
		return apperrors.InsufficientData("no messages loaded")
	}

	l.generation++
	l.state = models.StateGameStarting
	l.totalRounds = len(l.pool)
	l.roundNumber = 0

	l.log.WithFields(logrus.Fields{
		"players":  len(l.players),
		"messages": len(l.pool),
	}).Info("game starting")
	snap := l.snapshotLocked()
	l.events.Broadcast(l.ID, Event{Type: EventGameStarting, LobbyID: l.ID, State: &snap})
	l.recordLocked(callerID, "game_started", map[string]any{
		"players":  len(l.players),
		"messages": len(l.pool),
	})
	metrics.GamesStarted.Inc()

	if l.settings.StartDelay <= 0 {
		l.startRoundLocked()
	} else {
		l.scheduleLocked(l.settings.StartDelay, l.startRoundLocked)
	}
	l.Touch()
	return nil
}

// SubmitAnswer scores a player's guess for the active round. The round ends as soon
// as every player in the roster has answered.
func (l *Lobby) SubmitAnswer(playerID uuid.UUID, selectedAuthorID string, elapsedMs int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != models.StateRoundActive {
		return apperrors.State("no round is accepting answers")
	}
	p, ok := l.players[playerID]
	if !ok {
		return apperrors.NotFound("player %s is not in this lobby", playerID)
	}
	selectedAuthorID = strings.TrimSpace(selectedAuthorID)
	if selectedAuthorID == "" {
		return apperrors.Validation("selectedAuthorId is required")
	}
	if l.answers.Has(playerID) || p.HasAnswered() {
		return apperrors.State("answer already submitted for this round")
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}

	correct := selectedAuthorID == l.round.Message.AuthorID
	points := game.Score(correct, elapsedMs, l.round.Duration.Milliseconds())
	p.Score += points
	p.LastAnswerCorrect = boolRef(correct)
	p.LastAnswerElapsedMs = &elapsedMs

	l.events.Broadcast(l.ID, Event{
		Type:     EventAnswerSubmitted,
		LobbyID:  l.ID,
		PlayerID: playerRef(playerID),
	})
	l.recordLocked(playerID, "answer_submitted", map[string]any{
		"round":              l.round.Number,
		"selected_author_id": selectedAuthorID,
		"correct":            correct,
		"points":             points,
		"elapsed_ms":         elapsedMs,
	})
	metrics.AnswersSubmitted.WithLabelValues(strconv.FormatBool(correct)).Inc()

	if l.answers.Submit(playerID, len(l.players)) {
		l.endRoundLocked("all_answered")
	}
	l.Touch()
	return nil
}

// Leaderboard returns players ordered by score. After the game ends it returns the
// board frozen at that moment.
func (l *Lobby) Leaderboard() []models.LeaderboardEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == models.StateGameEnded {
		out := make([]models.LeaderboardEntry, len(l.finalBoard))
		copy(out, l.finalBoard)
		return out
	}
	return l.leaderboardLocked()
}

// scheduleLocked runs fn under the lobby lock after d, unless the generation moved on.
func (l *Lobby) scheduleLocked(d time.Duration, fn func()) {
	gen := l.generation
	l.pending = time.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.generation != gen {
			l.log.WithField("generation", gen).Debug("stale scheduled transition ignored")
			return
		}
		l.pending = nil
		fn()
	})
}

func (l *Lobby) startRoundLocked() {
	if len(l.pool) == 0 {
		l.endGameLocked()
		return
	}

	round, remaining, err := l.gen.NextRound(l.pool, l.settings.OptionCount)
	if err != nil {
		l.log.WithError(err).Error("failed to generate round")
		l.events.Broadcast(l.ID, ErrorEvent(l.ID, apperrors.PublicMessage(err)))
		l.endGameLocked()
		return
	}

	l.generation++
	gen := l.generation
	l.pool = remaining
	l.roundNumber++
	round.Number = l.roundNumber
	round.StartedAt = l.now()
	round.Duration = l.settings.RoundDuration()
	l.round = &round
	l.answers = game.NewAnswerSet()
	for _, p := range l.players {
		p.ResetAnswer()
	}
	l.state = models.StateRoundActive

	l.log.WithFields(logrus.Fields{
		"round":     round.Number,
		"remaining": len(l.pool),
	}).Debug("round started")
	pub := round.Public()
	snap := l.snapshotLocked()
	l.events.Broadcast(l.ID, Event{
		Type:    EventRoundStarted,
		LobbyID: l.ID,
		Round:   &pub,
		State:   &snap,
	})
	l.recordLocked(uuid.Nil, "round_started", map[string]any{
		"round":      round.Number,
		"message_id": round.Message.ID,
		"options":    len(round.Options),
	})
	metrics.RoundsStarted.Inc()

	l.roundTimer = time.AfterFunc(round.Duration, func() {
		l.roundTimeout(gen)
	})
}

// roundTimeout ends the round started in generation gen, if it is still running.
func (l *Lobby) roundTimeout(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != gen || l.state != models.StateRoundActive {
		l.log.WithField("generation", gen).Debug("stale round timer ignored")
		return
	}
	l.endRoundLocked("timeout")
}

func (l *Lobby) endRoundLocked(trigger string) {
	if l.state != models.StateRoundActive {
		return
	}
	if l.roundTimer != nil {
		l.roundTimer.Stop()
		l.roundTimer = nil
	}
	l.state = models.StateRoundEnded

	results := l.resultsLocked()
	board := l.leaderboardLocked()
	l.log.WithFields(logrus.Fields{
		"round":   l.round.Number,
		"trigger": trigger,
	}).Debug("round ended")
	l.events.Broadcast(l.ID, Event{
		Type:        EventRoundEnded,
		LobbyID:     l.ID,
		Results:     &results,
		Leaderboard: board,
	})
	l.recordLocked(uuid.Nil, "round_ended", map[string]any{
		"round":             l.round.Number,
		"trigger":           trigger,
		"correct_author_id": l.round.Message.AuthorID,
	})
	metrics.RoundsEnded.WithLabelValues(trigger).Inc()

	if l.settings.RoundEndDelay <= 0 {
		l.advanceLocked()
	} else {
		l.scheduleLocked(l.settings.RoundEndDelay, l.advanceLocked)
	}
}

func (l *Lobby) advanceLocked() {
	if l.state != models.StateRoundEnded {
		return
	}
	if len(l.pool) == 0 {
		l.endGameLocked()
		return
	}
	l.startRoundLocked()
}

func (l *Lobby) endGameLocked() {
	l.generation++
	l.stopTimersLocked()
	l.state = models.StateGameEnded
	l.round = nil
	l.answers = nil
	l.finalBoard = l.leaderboardLocked()

	l.log.WithField("rounds", l.roundNumber).Info("game ended")
	snap := l.snapshotLocked()
	l.events.Broadcast(l.ID, Event{
		Type:        EventGameEnded,
		LobbyID:     l.ID,
		Leaderboard: l.finalBoard,
		State:       &snap,
	})
	l.recordLocked(uuid.Nil, "game_ended", map[string]any{"rounds": l.roundNumber})
}

func (l *Lobby) resultsLocked() models.RoundResult {
	durationMs := l.round.Duration.Milliseconds()
	correct := l.round.CorrectOption()
	res := models.RoundResult{
		RoundNumber:       l.round.Number,
		CorrectAuthorID:   correct.AuthorID,
		CorrectAuthorName: correct.AuthorName,
		PlayerResults:     make([]models.PlayerRoundResult, 0, len(l.players)),
	}
	for _, p := range l.players {
		pr := models.PlayerRoundResult{PlayerID: p.ID, Name: p.Name}
		if p.HasAnswered() {
			pr.Answered = true
			pr.IsCorrect = *p.LastAnswerCorrect
			if p.LastAnswerElapsedMs != nil {
				pr.ElapsedMs = *p.LastAnswerElapsedMs
			}
			pr.PointsEarned = game.Score(pr.IsCorrect, pr.ElapsedMs, durationMs)
		}
		res.PlayerResults = append(res.PlayerResults, pr)
	}
	sort.Slice(res.PlayerResults, func(i, j int) bool {
		a, b := res.PlayerResults[i], res.PlayerResults[j]
		if a.PointsEarned != b.PointsEarned {
			return a.PointsEarned > b.PointsEarned
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlayerID.String() < b.PlayerID.String()
	})
	return res
}

func (l *Lobby) leaderboardLocked() []models.LeaderboardEntry {
	board := make([]models.LeaderboardEntry, 0, len(l.players))
	for _, p := range l.players {
		board = append(board, models.LeaderboardEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		if board[i].Name != board[j].Name {
			return board[i].Name < board[j].Name
		}
		return board[i].PlayerID.String() < board[j].PlayerID.String()
	})
	return board
}

func (l *Lobby) snapshotLocked() models.LobbySnapshot {
	players := make([]models.PlayerSnapshot, 0, len(l.players))
	inRound := l.state.HasRound()
	for _, p := range l.players {
		players = append(players, models.PlayerSnapshot{
			ID:       p.ID,
			Name:     p.Name,
			IsReady:  p.IsReady,
			Score:    p.Score,
			Answered: inRound && p.HasAnswered(),
		})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].ID.String() < players[j].ID.String()
	})
	authors := game.CountAuthors(l.pool)
	return models.LobbySnapshot{
		LobbyID:           l.ID,
		CreatorID:         l.creatorID,
		State:             l.state,
		CurrentRound:      l.roundNumber,
		TotalRounds:       l.totalRounds,
		RemainingMessages: len(l.pool),
		UniqueAuthors:     authors,
		PoolReady:         len(l.pool) > 0 && authors >= l.settings.OptionCount,
		SecondsPerRound:   l.settings.SecondsPerRound,
		OptionCount:       l.settings.OptionCount,
		Players:           players,
		CreatedAt:         l.CreatedAt,
	}
}
