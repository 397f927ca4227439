package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgresContactRepo はPostgreSQLを使用した連絡先リポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

// ListByUserID はユーザーの連絡先を作成日時順で返す。
func (r *PostgresContactRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, surname, telephone, description, picture, nickname, kind, created_at
		 FROM contacts
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		c := &model.Contact{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Surname, &c.Telephone, &c.Description,
			&c.Picture, &c.Nickname, &c.Kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// Create は連絡先を作成する。
func (r *PostgresContactRepo) Create(ctx context.Context, c *model.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, surname, telephone, description, picture, nickname, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.UserID, c.Name, c.Surname, c.Telephone, c.Description, c.Picture, c.Nickname, c.Kind, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
