package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStorage keeps one fsm_state row per key. The table is created by
// database.RunMigrations.
type PostgresStorage struct {
	db *sqlx.DB
}

type fsmRow struct {
	ChatID int64  `db:"chat_id"`
	UserID int64  `db:"user_id"`
	State  string `db:"state"`
	Data   string `db:"data"`
}

// NewPostgresStorage wraps an open connection pool.
func NewPostgresStorage(db *sqlx.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const (
	selectStateSQL = `SELECT state FROM fsm_state WHERE chat_id = $1 AND user_id = $2`
	selectDataSQL  = `SELECT data FROM fsm_state WHERE chat_id = $1 AND user_id = $2`
	upsertStateSQL = `
INSERT INTO fsm_state (chat_id, user_id, state)
VALUES (:chat_id, :user_id, :state)
ON CONFLICT (chat_id, user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
	upsertDataSQL = `
INSERT INTO fsm_state (chat_id, user_id, data)
VALUES (:chat_id, :user_id, CAST(:data AS jsonb))
ON CONFLICT (chat_id, user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	mergeDataSQL = `
INSERT INTO fsm_state (chat_id, user_id, data)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (chat_id, user_id) DO UPDATE SET data = fsm_state.data || EXCLUDED.data, updated_at = now()
RETURNING data`
)

// State returns the stored state or StateIdle.
func (p *PostgresStorage) State(ctx context.Context, key Key) (State, error) {
	var st string
	err := p.db.GetContext(ctx, &st, selectStateSQL, key.ChatID, key.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("select state: %w", err)
	}
	return State(st), nil
}

// SetState upserts the state column.
func (p *PostgresStorage) SetState(ctx context.Context, key Key, st State) error {
	row := fsmRow{ChatID: key.ChatID, UserID: key.UserID, State: string(st)}
	if _, err := p.db.NamedExecContext(ctx, upsertStateSQL, row); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// Data returns the stored data or an empty map.
func (p *PostgresStorage) Data(ctx context.Context, key Key) (Data, error) {
	var raw []byte
	err := p.db.GetContext(ctx, &raw, selectDataSQL, key.ChatID, key.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Data{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select data: %w", err)
	}
	return decodeData(raw)
}

// SetData replaces the data column.
func (p *PostgresStorage) SetData(ctx context.Context, key Key, data Data) error {
	raw, err := json.Marshal(data.Clone())
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	row := fsmRow{ChatID: key.ChatID, UserID: key.UserID, Data: string(raw)}
	if _, err := p.db.NamedExecContext(ctx, upsertDataSQL, row); err != nil {
		return fmt.Errorf("upsert data: %w", err)
	}
	return nil
}

// UpdateData merges patch with the jsonb concatenation operator in a single statement.
func (p *PostgresStorage) UpdateData(ctx context.Context, key Key, patch Data) (Data, error) {
	raw, err := json.Marshal(patch.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	var merged []byte
	if err := p.db.QueryRowxContext(ctx, mergeDataSQL, key.ChatID, key.UserID, string(raw)).Scan(&merged); err != nil {
		return nil, fmt.Errorf("merge data: %w", err)
	}
	return decodeData(merged)
}

// Close closes the pool.
func (p *PostgresStorage) Close() error {
	return p.db.Close()
}

func decodeData(raw []byte) (Data, error) {
	out := Data{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return out, nil
}
