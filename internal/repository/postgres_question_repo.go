package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/healthpass/healthpass/internal/model"
)

const selectQuestionColumns = `
	SELECT q.id, q.user_id, q.picture_id, q.title, q.answer, q.answered_at, q.created_at,
	       p.url, p.created_at
	FROM questions q
	LEFT JOIN pictures p ON p.id = q.picture_id`

// PostgresQuestionRepo はPostgreSQLを使用した質問リポジトリ。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

func scanQuestion(row rowScanner) (*model.Question, error) {
	q := &model.Question{}
	var (
		pictureURL     sql.NullString
		pictureCreated sql.NullTime
	)
	err := row.Scan(
		&q.ID, &q.UserID, &q.PictureID, &q.Title, &q.Answer, &q.AnsweredAt, &q.CreatedAt,
		&pictureURL, &pictureCreated,
	)
	if err != nil {
		return nil, err
	}
	if q.PictureID != nil && pictureURL.Valid {
		q.Picture = &model.Picture{
			ID:        *q.PictureID,
			URL:       pictureURL.String,
			CreatedAt: pictureCreated.Time,
		}
	}
	return q, nil
}

// FindByID は指定IDの質問を取得する。見つからない場合はnilを返す。
func (r *PostgresQuestionRepo) FindByID(ctx context.Context, id string) (*model.Question, error) {
	q, err := scanQuestion(r.db.QueryRowContext(ctx, selectQuestionColumns+` WHERE q.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return q, nil
}

// ListByUserID はユーザーの質問を作成日時順で返す。
func (r *PostgresQuestionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		selectQuestionColumns+` WHERE q.user_id = $1 ORDER BY q.created_at, q.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []*model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

// Create は質問を作成する。
func (r *PostgresQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO questions (id, user_id, picture_id, title, answer, answered_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.UserID, q.PictureID, q.Title, q.Answer, q.AnsweredAt, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// UpdateAnswer は回答と回答日時を更新する。
func (r *PostgresQuestionRepo) UpdateAnswer(ctx context.Context, q *model.Question) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE questions SET answer = $2, answered_at = $3 WHERE id = $1`,
		q.ID, q.Answer, q.AnsweredAt,
	)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
