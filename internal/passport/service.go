// Package passport はユーザーに紐づく記録（質問、連絡先、感情、アレルギー、予定、位置情報）の
// ドメインロジックを提供する。
package passport

import (
	"context"
	"fmt"
	"time"

	"github.com/healthpass/healthpass/internal/access"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// TextSanitizer は自由記述フィールドの無害化インターフェース。
type TextSanitizer interface {
	Clean(s string) string
}

// Repositories はServiceが利用するリポジトリ群。
type Repositories struct {
	Users     repository.UserRepository
	Pictures  repository.PictureRepository
	Questions repository.QuestionRepository
	Contacts  repository.ContactRepository
	Emotions  repository.EmotionRepository
	Allergies repository.AllergyRepository
	Events    repository.EventRepository
	Positions repository.PositionRepository
}

// Service は記録操作のサービス層。
// 全操作は対象ユーザーへのアクセス可否を判定してからリポジトリを呼ぶ。
type Service struct {
	repos     Repositories
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repos Repositories, sanitizer TextSanitizer) *Service {
	return &Service{
		repos:     repos,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// resolveOwner は記録の所有者IDを決定する。空の場合は操作者本人とする。
func resolveOwner(actor *model.User, userID string) string {
	if userID == "" && actor != nil {
		return actor.ID
	}
	return userID
}

// authorizeRead は参照権限と対象ユーザーの存在を確認する。
func (s *Service) authorizeRead(ctx context.Context, actor *model.User, userID string) error {
	if !access.CanRead(actor, userID) {
		return model.NewForbiddenError()
	}
	return s.ensureUser(ctx, userID)
}

// authorizeWrite は書き込み権限と対象ユーザーの存在を確認する。
func (s *Service) authorizeWrite(ctx context.Context, actor *model.User, userID string) error {
	if !access.CanWrite(actor, userID) {
		return model.NewForbiddenError()
	}
	return s.ensureUser(ctx, userID)
}

func (s *Service) ensureUser(ctx context.Context, userID string) error {
	u, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}

// timeOrNow はnilの場合に現在時刻を返す。
func (s *Service) timeOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return s.now()
	}
	return *t
}
