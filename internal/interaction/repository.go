// Package interaction persists a history of assistant requests and
// their outcomes in the interactions table.
package interaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Interaction is one assistant request from input to outcome.
type Interaction struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id"`
	Source      string `json:"source"`
	InputText   string `json:"input_text,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	ActionsApplied int `json:"actions_applied"`
	ActionsDenied  int `json:"actions_denied"`
	ActionsFailed  int `json:"actions_failed"`

	// Error holds the request-level failure, empty on success. Per-action
	// failures land in ActionsFailed, not here.
	Error string `json:"error,omitempty"`

	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	CachedTokens     int    `json:"cached_tokens"`

	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines interaction log operations.
type Repository interface {
	Create(ctx context.Context, in *Interaction) error
	Recent(ctx context.Context, limit int) ([]Interaction, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteRepository stores interactions in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new interaction repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an interaction. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, in *Interaction) error {
	if in.ID == "" {
		in.ID = "int-" + uuid.NewString()[:8]
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interactions
		 (id, request_id, source, input_text, explanation,
		  actions_applied, actions_denied, actions_failed, error,
		  model, prompt_tokens, completion_tokens, cached_tokens,
		  latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.RequestID, in.Source,
		nullableString(in.InputText), nullableString(in.Explanation),
		in.ActionsApplied, in.ActionsDenied, in.ActionsFailed,
		nullableString(in.Error),
		nullableString(in.Model), in.PromptTokens, in.CompletionTokens, in.CachedTokens,
		in.LatencyMs, in.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// Recent returns the newest interactions, most recent first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, source, input_text, explanation,
		        actions_applied, actions_denied, actions_failed, error,
		        model, prompt_tokens, completion_tokens, cached_tokens,
		        latency_ms, created_at
		 FROM interactions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	interactions := []Interaction{}
	for rows.Next() {
		var in Interaction
		var inputText, explanation, errText, model sql.NullString
		var createdAt string

		if err := rows.Scan(&in.ID, &in.RequestID, &in.Source, &inputText, &explanation,
			&in.ActionsApplied, &in.ActionsDenied, &in.ActionsFailed, &errText,
			&model, &in.PromptTokens, &in.CompletionTokens, &in.CachedTokens,
			&in.LatencyMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}

		in.InputText = inputText.String
		in.Explanation = explanation.String
		in.Error = errText.String
		in.Model = model.String

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing interaction timestamp %q: %w", createdAt, err)
		}
		in.CreatedAt = t

		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interactions: %w", err)
	}
	return interactions, nil
}

// Prune deletes interactions older than the retention window and
// returns how many rows went away.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM interactions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning interactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning interactions: %w", err)
	}
	return n, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
