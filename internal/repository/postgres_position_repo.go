package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgresPositionRepo はPostgreSQLを使用した位置情報リポジトリ。
type PostgresPositionRepo struct {
	db *sql.DB
}

// NewPostgresPositionRepo はPostgresPositionRepoを生成する。
func NewPostgresPositionRepo(db *sql.DB) *PostgresPositionRepo {
	return &PostgresPositionRepo{db: db}
}

// ListByUserID はユーザーの位置情報を記録日時の新しい順で返す。
func (r *PostgresPositionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Position, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, latitude, longitude, accuracy, recorded_at
		 FROM positions
		 WHERE user_id = $1
		 ORDER BY recorded_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	positions := []*model.Position{}
	for rows.Next() {
		p := &model.Position{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return positions, nil
}

// Create は位置情報を作成する。
func (r *PostgresPositionRepo) Create(ctx context.Context, p *model.Position) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO positions (id, user_id, latitude, longitude, accuracy, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserID, p.Latitude, p.Longitude, p.Accuracy, p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PositionRepository = (*PostgresPositionRepo)(nil)
