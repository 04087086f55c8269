package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DatabaseOperations provides typed access to the interactions store.
type DatabaseOperations struct {
	db        *sql.DB
	sessionID string
}

// NewDatabaseOperations creates operations bound to a connection and session.
func NewDatabaseOperations(db *sql.DB, sessionID string) *DatabaseOperations {
	return &DatabaseOperations{db: db, sessionID: sessionID}
}

// SaveInteraction records one pipeline run. The session ID is filled from
// the operations binding when the record leaves it empty.
func (ops *DatabaseOperations) SaveInteraction(ctx context.Context, in *Interaction) error {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = ops.sessionID
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := ops.db.ExecContext(ctx, `
		INSERT INTO interactions (
			request_id, session_id, created_at, question, answered,
			rejection_reason, route, solution, confidence,
			needs_human_feedback, processing_time_ms, tokens_used, cost_estimate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.RequestID, sessionID, createdAt, in.Question, in.Answered,
		in.RejectionReason, in.Route, in.Solution, in.Confidence,
		in.NeedsHumanFeedback, in.ProcessingTime.Milliseconds(), in.TokensUsed, in.CostEstimate,
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction %s: %w", in.RequestID, err)
	}
	return nil
}

// GetInteraction loads one interaction by request ID.
func (ops *DatabaseOperations) GetInteraction(ctx context.Context, requestID string) (*Interaction, error) {
	row := ops.db.QueryRowContext(ctx, `
		SELECT request_id, session_id, created_at, question, answered,
		       rejection_reason, route, solution, confidence,
		       needs_human_feedback, processing_time_ms, tokens_used, cost_estimate
		FROM interactions WHERE request_id = ?`, requestID)

	return scanInteraction(row)
}

// GetRecentInteractions returns the newest interactions for the bound
// session, most recent first.
func (ops *DatabaseOperations) GetRecentInteractions(ctx context.Context, limit int) ([]*Interaction, error) {
	rows, err := ops.db.QueryContext(ctx, `
		SELECT request_id, session_id, created_at, question, answered,
		       rejection_reason, route, solution, confidence,
		       needs_human_feedback, processing_time_ms, tokens_used, cost_estimate
		FROM interactions
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, ops.sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var interactions []*Interaction
	for rows.Next() {
		in, scanErr := scanInteraction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return interactions, nil
}

// GetSessionTotals aggregates usage for the bound session.
func (ops *DatabaseOperations) GetSessionTotals(ctx context.Context) (*SessionTotals, error) {
	row := ops.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(answered), 0),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(SUM(cost_estimate), 0)
		FROM interactions WHERE session_id = ?`, ops.sessionID)

	totals := &SessionTotals{}
	if err := row.Scan(&totals.Interactions, &totals.Answered, &totals.TokensUsed, &totals.CostEstimate); err != nil {
		return nil, fmt.Errorf("failed to aggregate session totals: %w", err)
	}
	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row rowScanner) (*Interaction, error) {
	in := &Interaction{}
	var (
		rejection  sql.NullString
		route      sql.NullString
		solution   sql.NullString
		procTimeMS int64
	)

	err := row.Scan(
		&in.RequestID, &in.SessionID, &in.CreatedAt, &in.Question, &in.Answered,
		&rejection, &route, &solution, &in.Confidence,
		&in.NeedsHumanFeedback, &procTimeMS, &in.TokensUsed, &in.CostEstimate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan interaction: %w", err)
	}

	in.RejectionReason = rejection.String
	in.Route = route.String
	in.Solution = solution.String
	in.ProcessingTime = time.Duration(procTimeMS) * time.Millisecond
	return in, nil
}
