package repository

import (
	"context"
	"fmt"
	"strconv"

	"raffler/database"
	"raffler/domain/entities"
	"raffler/infrastructure/observability"

	"github.com/jackc/pgx/v5"
)

// DrawRecordRepository implements the DrawRecordRepository interface over the
// raffle_draws history table
type DrawRecordRepository struct {
	q Queryable
}

// NewDrawRecordRepository creates a new draw record repository
func NewDrawRecordRepository(db *database.DB) *DrawRecordRepository {
	return &DrawRecordRepository{q: db.Pool}
}

// NewDrawRecordRepositoryWithTx creates a new draw record repository bound to a transaction
func NewDrawRecordRepositoryWithTx(tx Queryable) *DrawRecordRepository {
	return &DrawRecordRepository{q: tx}
}

// Create persists a settled draw. The request ID is unique, so replaying a
// fulfillment fails here instead of paying out twice.
func (r *DrawRecordRepository) Create(ctx context.Context, record *entities.DrawRecord) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("draw_record", "Create")()

	query := `
		INSERT INTO raffle_draws (request_id, random_word, winner, winner_index, payout, player_count, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	// random_word is stored as text: the oracle's words span the full uint64
	// range, which BIGINT cannot hold
	err := r.q.QueryRow(ctx, query,
		record.RequestID,
		strconv.FormatUint(record.RandomWord, 10),
		record.Winner,
		record.WinnerIndex,
		record.Payout,
		record.PlayerCount,
		record.SettledAt,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draw record: %w", err)
	}

	return nil
}

// GetLatest returns the most recently settled draw, or nil if none exist
func (r *DrawRecordRepository) GetLatest(ctx context.Context) (*entities.DrawRecord, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("draw_record", "GetLatest")()

	query := `
		SELECT id, request_id, random_word, winner, winner_index, payout, player_count, settled_at, created_at
		FROM raffle_draws
		ORDER BY settled_at DESC
		LIMIT 1
	`

	record, err := r.scanRecord(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw record: %w", err)
	}

	return record, nil
}

// ListRecent returns up to limit settled draws, most recent first
func (r *DrawRecordRepository) ListRecent(ctx context.Context, limit int) ([]*entities.DrawRecord, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("draw_record", "ListRecent")()

	query := `
		SELECT id, request_id, random_word, winner, winner_index, payout, player_count, settled_at, created_at
		FROM raffle_draws
		ORDER BY settled_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw records: %w", err)
	}
	defer rows.Close()

	var records []*entities.DrawRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draw records: %w", err)
	}

	return records, nil
}

// scanRecord scans a single draw row, converting the stored random word back
// to its numeric form
func (r *DrawRecordRepository) scanRecord(row pgx.Row) (*entities.DrawRecord, error) {
	var record entities.DrawRecord
	var randomWord string

	err := row.Scan(
		&record.ID,
		&record.RequestID,
		&randomWord,
		&record.Winner,
		&record.WinnerIndex,
		&record.Payout,
		&record.PlayerCount,
		&record.SettledAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RandomWord, err = strconv.ParseUint(randomWord, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stored random word %q: %w", randomWord, err)
	}

	return &record, nil
}
