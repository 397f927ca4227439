// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/access"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// MaxPasswordBytes はパスワードの最大バイト数。bcryptは72バイトを超える入力を扱えない。
const MaxPasswordBytes = 72

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// TextSanitizer は自由記述フィールドの無害化インターフェース。
type TextSanitizer interface {
	Clean(s string) string
}

// PatientInput は患者情報の入力。nilのフィールドは変更しない。
type PatientInput struct {
	DisabilityLevel    *int
	UnderstandingLevel *int
	CommunicationType  *int
	SupportHours       *int
}

// CreateInput はユーザー作成の入力。
type CreateInput struct {
	Username  string
	Password  string
	Name      string
	Surname   string
	Email     string
	Role      model.Role // 空の場合はpatient
	Telephone string
	Patient   *PatientInput
}

// UpdateInput はユーザー部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Password  *string
	Name      *string
	Surname   *string
	Email     *string
	Role      *model.Role
	Telephone *string
	Patient   *PatientInput
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	sanitizer   TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		sanitizer:   sanitizer,
	}
}

// List は全ユーザーを返す。医師・介護者のみ実行できる。
func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.User, error) {
	if !access.CanManageUsers(actor) {
		return nil, model.NewForbiddenError()
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, actor *model.User, id string) (*model.User, error) {
	if !access.CanRead(actor, id) {
		return nil, model.NewForbiddenError()
	}

	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return u, nil
}

// Create はユーザーを作成する。ユーザー名が重複する場合はCONFLICTを返す。
func (s *Service) Create(ctx context.Context, actor *model.User, in CreateInput) (*model.User, error) {
	if !access.CanManageUsers(actor) {
		return nil, model.NewForbiddenError()
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, model.NewValidationError("username and password are required.")
	}
	if in.Role == "" {
		in.Role = model.RolePatient
	}
	if !in.Role.Valid() {
		return nil, model.NewValidationError("Unknown role.", fmt.Sprintf("role: %q", in.Role))
	}
	// 医師以外が作成できるのは患者のみ
	if in.Role != model.RolePatient && actor.Role != model.RoleDoctor {
		return nil, model.NewForbiddenError()
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Patient != nil && in.Role != model.RolePatient {
		return nil, model.NewValidationError("Only patients can have a patient record.")
	}

	existing, err := s.userRepo.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError(in.Username)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		PasswordHash: hash,
		Name:         s.sanitizer.Clean(in.Name),
		Surname:      s.sanitizer.Clean(in.Surname),
		Email:        strings.TrimSpace(in.Email),
		Role:         in.Role,
		Telephone:    strings.TrimSpace(in.Telephone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Patient != nil {
		u.Patient = mergePatient(&model.Patient{}, in.Patient)
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateUsernameError(in.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
		slog.String("created_by", actor.ID),
	)
	return u, nil
}

// Update はユーザーを部分更新する。役割の変更は医師のみ行える。
func (s *Service) Update(ctx context.Context, actor *model.User, id string, in UpdateInput) (*model.User, error) {
	if !access.CanWrite(actor, id) {
		return nil, model.NewForbiddenError()
	}
	if in.Role != nil && actor.Role != model.RoleDoctor {
		return nil, model.NewForbiddenError()
	}

	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	if in.Password != nil {
		if *in.Password == "" {
			return nil, model.NewValidationError("password must not be empty.")
		}
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if in.Name != nil {
		u.Name = s.sanitizer.Clean(*in.Name)
	}
	if in.Surname != nil {
		u.Surname = s.sanitizer.Clean(*in.Surname)
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Telephone != nil {
		u.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, model.NewValidationError("Unknown role.", fmt.Sprintf("role: %q", *in.Role))
		}
		u.Role = *in.Role
	}
	if in.Patient != nil {
		if u.Role != model.RolePatient {
			return nil, model.NewValidationError("Only patients can have a patient record.")
		}
		base := u.Patient
		if base == nil {
			base = &model.Patient{UserID: u.ID}
		}
		u.Patient = mergePatient(base, in.Patient)
	}
	u.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// Delete はユーザーを削除する。
// 削除順序: sessions → user（+ CASCADE: patients と各記録）。画像は共有ライブラリとして残す。
func (s *Service) Delete(ctx context.Context, actor *model.User, id string) error {
	if !access.CanDeleteUser(actor, id) {
		return model.NewForbiddenError()
	}

	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return model.NewUserNotFoundError(id)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError(id)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted",
		slog.String("user_id", id),
		slog.String("deleted_by", actor.ID),
	)
	return nil
}

func validatePassword(password string) error {
	if len(password) > MaxPasswordBytes {
		return model.NewValidationError("password is too long.",
			fmt.Sprintf("password: must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func mergePatient(base *model.Patient, in *PatientInput) *model.Patient {
	p := *base
	if in.DisabilityLevel != nil {
		p.DisabilityLevel = *in.DisabilityLevel
	}
	if in.UnderstandingLevel != nil {
		p.UnderstandingLevel = *in.UnderstandingLevel
	}
	if in.CommunicationType != nil {
		p.CommunicationType = *in.CommunicationType
	}
	if in.SupportHours != nil {
		p.SupportHours = *in.SupportHours
	}
	return &p
}
