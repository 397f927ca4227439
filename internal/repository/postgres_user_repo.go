package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/healthpass/healthpass/internal/model"
)

// PostgreSQLのSQLSTATE。
const (
	pqUniqueViolation           = "23505"
	pqInvalidTextRepresentation = "22P02" // UUID列に不正な文字列を渡した場合
)

const selectUserColumns = `
	SELECT u.id, u.username, u.password_hash, u.name, u.surname, u.email, u.role, u.telephone,
	       u.created_at, u.updated_at,
	       p.user_id, p.disability_level, p.understanding_level, p.communication_type, p.support_hours
	FROM users u
	LEFT JOIN patients p ON p.user_id = u.id`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var (
		patientUserID              sql.NullString
		disability, understanding  sql.NullInt64
		communication, supportHour sql.NullInt64
	)
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Name, &user.Surname, &user.Email,
		&user.Role, &user.Telephone, &user.CreatedAt, &user.UpdatedAt,
		&patientUserID, &disability, &understanding, &communication, &supportHour,
	)
	if err != nil {
		return nil, err
	}
	if patientUserID.Valid {
		user.Patient = &model.Patient{
			UserID:             patientUserID.String,
			DisabilityLevel:    int(disability.Int64),
			UnderstandingLevel: int(understanding.Int64),
			CommunicationType:  int(communication.Int64),
			SupportHours:       int(supportHour.Int64),
		}
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE u.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE u.username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// List は全ユーザーをユーザー名順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUserColumns+` ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Create はユーザーと患者情報を同一トランザクションで作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, name, surname, email, role, telephone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Username, user.PasswordHash, user.Name, user.Surname, user.Email,
		user.Role, user.Telephone, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if user.Patient != nil {
		user.Patient.UserID = user.ID
		if err := upsertPatient(ctx, tx, user.Patient); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はユーザーを更新し、患者情報をUPSERTする。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = $2, name = $3, surname = $4, email = $5, role = $6, telephone = $7, updated_at = $8
		 WHERE id = $1`,
		user.ID, user.PasswordHash, user.Name, user.Surname, user.Email, user.Role, user.Telephone, user.UpdatedAt,
	)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if user.Patient != nil {
		user.Patient.UserID = user.ID
		if err := upsertPatient(ctx, tx, user.Patient); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 患者情報と各記録、セッション行はCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result)
}

func upsertPatient(ctx context.Context, tx *sql.Tx, p *model.Patient) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO patients (user_id, disability_level, understanding_level, communication_type, support_hours)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     disability_level = EXCLUDED.disability_level,
		     understanding_level = EXCLUDED.understanding_level,
		     communication_type = EXCLUDED.communication_type,
		     support_hours = EXCLUDED.support_hours`,
		p.UserID, p.DisabilityLevel, p.UnderstandingLevel, p.CommunicationType, p.SupportHours,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, pqUniqueViolation)
}

// isInvalidID はUUIDとして解釈できないIDによるエラーかを判定する。
// そのようなIDの行は存在しないため、呼び出し側は未検出として扱う。
func isInvalidID(err error) bool {
	return hasSQLState(err, pqInvalidTextRepresentation)
}

func hasSQLState(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
