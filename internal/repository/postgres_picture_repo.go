package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgresPictureRepo はPostgreSQLを使用した画像リポジトリ。
type PostgresPictureRepo struct {
	db *sql.DB
}

// NewPostgresPictureRepo はPostgresPictureRepoを生成する。
func NewPostgresPictureRepo(db *sql.DB) *PostgresPictureRepo {
	return &PostgresPictureRepo{db: db}
}

// FindByID は指定IDの画像を取得する。見つからない場合はnilを返す。
func (r *PostgresPictureRepo) FindByID(ctx context.Context, id string) (*model.Picture, error) {
	p := &model.Picture{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, created_at FROM pictures WHERE id = $1`, id,
	).Scan(&p.ID, &p.URL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find picture: %w", err)
	}
	return p, nil
}

// List は全画像を作成日時の新しい順で返す。
func (r *PostgresPictureRepo) List(ctx context.Context) ([]*model.Picture, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, created_at FROM pictures ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pictures: %w", err)
	}
	defer rows.Close()

	pictures := []*model.Picture{}
	for rows.Next() {
		p := &model.Picture{}
		if err := rows.Scan(&p.ID, &p.URL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan picture: %w", err)
		}
		pictures = append(pictures, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pictures: %w", err)
	}
	return pictures, nil
}

// Create は画像を作成する。
func (r *PostgresPictureRepo) Create(ctx context.Context, picture *model.Picture) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pictures (id, url, created_at) VALUES ($1, $2, $3)`,
		picture.ID, picture.URL, picture.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create picture: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PictureRepository = (*PostgresPictureRepo)(nil)
