package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/whosaid/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS lobbies (
	id           UUID PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'open',
	games_played INT NOT NULL DEFAULT 0,
	first_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	closed_at    TIMESTAMPTZ,
	close_reason TEXT
);

CREATE TABLE IF NOT EXISTS lobby_actions (
	lobby_id       UUID NOT NULL REFERENCES lobbies(id),
	action_index   INT NOT NULL,
	actor_id       UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	occurred_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (lobby_id, action_index)
);
`

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Migrate creates the history tables if they do not exist.
func Migrate(ctx context.Context, db TxBeginner) error {
	return BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}

// InsertLobbyActions writes a batch of history records in one transaction.
func InsertLobbyActions(ctx context.Context, db TxBeginner, records []cache.LobbyActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertLobbyActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertLobbyActionTx: %w", err)
			}
		}
		return nil
	})
}

// insertLobbyActionTx inserts one action and keeps the lobby summary row current.
// Replayed records are ignored.
func insertLobbyActionTx(ctx context.Context, tx pgx.Tx, rec cache.LobbyActionRecord) error {
	upsertLobbyQ := `
		INSERT INTO lobbies (id, status, first_seen)
		VALUES ($1, 'open', $2)
		ON CONFLICT (id) DO NOTHING
	`
	occurred := time.UnixMilli(rec.Timestamp).UTC()
	if _, err := tx.Exec(ctx, upsertLobbyQ, rec.LobbyID, occurred); err != nil {
		return err
	}

	payload := rec.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	actionInsertQ := `
		INSERT INTO lobby_actions (
			lobby_id, action_index, actor_id, action_type, action_payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lobby_id, action_index) DO NOTHING
	`
	tag, err := tx.Exec(ctx, actionInsertQ,
		rec.LobbyID, rec.ActionIndex, nullableActor(rec), rec.ActionType, jsonPayload, occurred,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	switch rec.ActionType {
	case "game_ended":
		_, err = tx.Exec(ctx, `UPDATE lobbies SET games_played = games_played + 1 WHERE id = $1`, rec.LobbyID)
	case "lobby_closed":
		reason, _ := payload["reason"].(string)
		_, err = tx.Exec(ctx, `
			UPDATE lobbies
			SET status = 'closed', closed_at = $2, close_reason = $3
			WHERE id = $1 AND status = 'open'
		`, rec.LobbyID, occurred, reason)
	}
	return err
}

// nullableActor maps system actions (nil actor) to SQL NULL.
func nullableActor(rec cache.LobbyActionRecord) any {
	if rec.ActorID == uuid.Nil {
		return nil
	}
	return rec.ActorID
}

// BeginTxFunc starts a transaction, calls f with it, and commits or rolls back as needed.
func BeginTxFunc(ctx context.Context, db TxBeginner, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	// If f returns an error, rollback and return the error.
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
