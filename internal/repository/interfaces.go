// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/healthpass/healthpass/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しないことを表す。
var ErrNotFound = errors.New("record not found")

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを患者情報付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーをユーザー名順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーと患者情報（存在する場合）を同一トランザクションで作成する。
	// ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーを更新し、患者情報をUPSERTする。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連する記録はCASCADE削除される。対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PictureRepository は画像ライブラリの永続化インターフェース。
type PictureRepository interface {
	FindByID(ctx context.Context, id string) (*model.Picture, error)
	List(ctx context.Context) ([]*model.Picture, error)
	Create(ctx context.Context, picture *model.Picture) error
}

// QuestionRepository は質問データの永続化インターフェース。
type QuestionRepository interface {
	// FindByID は指定IDの質問を画像付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Question, error)
	// ListByUserID はユーザーの質問を作成日時順に画像付きで返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Question, error)
	Create(ctx context.Context, question *model.Question) error
	// UpdateAnswer は回答と回答日時を更新する。対象が存在しない場合はErrNotFoundを返す。
	UpdateAnswer(ctx context.Context, question *model.Question) error
}

// ContactRepository は連絡先の永続化インターフェース。
type ContactRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
}

// EmotionRepository は感情記録の永続化インターフェース。
type EmotionRepository interface {
	// ListByUserID は記録日時の新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Emotion, error)
	Create(ctx context.Context, emotion *model.Emotion) error
}

// AllergyRepository はアレルギー情報の永続化インターフェース。
type AllergyRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Allergy, error)
	Create(ctx context.Context, allergy *model.Allergy) error
	// DeleteByUserAndID はユーザーに属するアレルギーを削除する。
	// 該当行がない場合はErrNotFoundを返す。
	DeleteByUserAndID(ctx context.Context, userID, id string) error
}

// EventRepository は予定の永続化インターフェース。
type EventRepository interface {
	// ListByUserID は開始日時順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Event, error)
	Create(ctx context.Context, event *model.Event) error
}

// PositionRepository は位置情報の永続化インターフェース。
type PositionRepository interface {
	// ListByUserID は記録日時の新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Position, error)
	Create(ctx context.Context, position *model.Position) error
}
