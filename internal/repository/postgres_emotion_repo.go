package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgresEmotionRepo はPostgreSQLを使用した感情記録リポジトリ。
type PostgresEmotionRepo struct {
	db *sql.DB
}

// NewPostgresEmotionRepo はPostgresEmotionRepoを生成する。
func NewPostgresEmotionRepo(db *sql.DB) *PostgresEmotionRepo {
	return &PostgresEmotionRepo{db: db}
}

// ListByUserID はユーザーの感情記録を記録日時の新しい順で返す。
func (r *PostgresEmotionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Emotion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, intensity, note, recorded_at
		 FROM emotions
		 WHERE user_id = $1
		 ORDER BY recorded_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list emotions: %w", err)
	}
	defer rows.Close()

	emotions := []*model.Emotion{}
	for rows.Next() {
		e := &model.Emotion{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Intensity, &e.Note, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan emotion: %w", err)
		}
		emotions = append(emotions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emotions: %w", err)
	}
	return emotions, nil
}

// Create は感情記録を作成する。
func (r *PostgresEmotionRepo) Create(ctx context.Context, e *model.Emotion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO emotions (id, user_id, kind, intensity, note, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Kind, e.Intensity, e.Note, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create emotion: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EmotionRepository = (*PostgresEmotionRepo)(nil)
