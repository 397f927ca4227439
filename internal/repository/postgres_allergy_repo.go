package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgresAllergyRepo はPostgreSQLを使用したアレルギーリポジトリ。
type PostgresAllergyRepo struct {
	db *sql.DB
}

// NewPostgresAllergyRepo はPostgresAllergyRepoを生成する。
func NewPostgresAllergyRepo(db *sql.DB) *PostgresAllergyRepo {
	return &PostgresAllergyRepo{db: db}
}

// ListByUserID はユーザーのアレルギーを名前順で返す。
func (r *PostgresAllergyRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Allergy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, severity, reaction, notes, created_at
		 FROM allergies
		 WHERE user_id = $1
		 ORDER BY name, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allergies: %w", err)
	}
	defer rows.Close()

	allergies := []*model.Allergy{}
	for rows.Next() {
		a := &model.Allergy{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Severity, &a.Reaction, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allergy: %w", err)
		}
		allergies = append(allergies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allergies: %w", err)
	}
	return allergies, nil
}

// Create はアレルギーを作成する。
func (r *PostgresAllergyRepo) Create(ctx context.Context, a *model.Allergy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO allergies (id, user_id, name, severity, reaction, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Name, a.Severity, a.Reaction, a.Notes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create allergy: %w", err)
	}
	return nil
}

// DeleteByUserAndID はユーザーに属するアレルギーを削除する。
func (r *PostgresAllergyRepo) DeleteByUserAndID(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM allergies WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete allergy: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ AllergyRepository = (*PostgresAllergyRepo)(nil)
