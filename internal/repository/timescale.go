package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gourmet/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// TimescaleRepository persists interaction records into the
// restaurant_recommendations hypertable. Records are append-only and
// time-ordered; nothing here mutates a row after insert.
type TimescaleRepository struct {
	db *sqlx.DB
}

// NewTimescaleRepository connects to TimescaleDB
func NewTimescaleRepository(dsn string, maxConn, maxIdleConn int) (*TimescaleRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TimescaleRepository{db: db}, nil
}

// Close closes the database connection
func (r *TimescaleRepository) Close() error {
	return r.db.Close()
}

// SaveInteraction appends one interaction record. embedding is optional; a
// nil slice stores NULL.
func (r *TimescaleRepository) SaveInteraction(ctx context.Context, rec model.InteractionRecord, embedding []float32) error {
	query := `
		INSERT INTO restaurant_recommendations
			(session_id, user_id, timestamp, location, preference, result_ids, match_score, degraded, preference_embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var userID sql.NullString
	if rec.UserID != "" {
		userID = sql.NullString{String: rec.UserID, Valid: true}
	}

	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.SessionID,
		userID,
		rec.Timestamp,
		rec.Location,
		rec.Preference,
		pq.Array(rec.ResultIDs),
		rec.MatchScore,
		rec.Degraded,
		vec,
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

// RecentPreferences returns the user's latest preference texts, newest first
func (r *TimescaleRepository) RecentPreferences(ctx context.Context, userID string, limit int) ([]string, error) {
	query := `
		SELECT preference
		FROM restaurant_recommendations
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	var prefs []string
	if err := r.db.SelectContext(ctx, &prefs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch recent preferences: %w", err)
	}
	return prefs, nil
}

// SimilarPreferences returns preference texts from other users closest (by
// embedding distance) to the given user's most recent embedded query.
func (r *TimescaleRepository) SimilarPreferences(ctx context.Context, userID string, limit int) ([]string, error) {
	query := `
		WITH latest AS (
			SELECT preference_embedding
			FROM restaurant_recommendations
			WHERE user_id = $1 AND preference_embedding IS NOT NULL
			ORDER BY timestamp DESC
			LIMIT 1
		)
		SELECT r.preference
		FROM restaurant_recommendations r, latest
		WHERE r.preference_embedding IS NOT NULL
		  AND (r.user_id IS NULL OR r.user_id <> $1)
		ORDER BY r.preference_embedding <-> latest.preference_embedding
		LIMIT $2
	`
	var prefs []string
	if err := r.db.SelectContext(ctx, &prefs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch similar preferences: %w", err)
	}
	return prefs, nil
}
