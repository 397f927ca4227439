package passport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// ContactInput は連絡先作成の入力。
type ContactInput struct {
	UserID      string
	Name        string
	Surname     string
	Telephone   string
	Description string
	Picture     *string
	Nickname    string
	Kind        model.ContactKind
}

// EmotionInput は感情記録の入力。RecordedAtがnilの場合は現在時刻。
type EmotionInput struct {
	UserID     string
	Kind       string
	Intensity  int
	Note       string
	RecordedAt *time.Time
}

// AllergyInput はアレルギー登録の入力。
type AllergyInput struct {
	UserID   string
	Name     string
	Severity model.AllergySeverity
	Reaction string
	Notes    string
}

// EventInput は予定作成の入力。
type EventInput struct {
	UserID      string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
}

// PositionInput は位置情報記録の入力。RecordedAtがnilの場合は現在時刻。
type PositionInput struct {
	UserID     string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	RecordedAt *time.Time
}

// --- 連絡先 ---

// ListContacts はユーザーの連絡先一覧を返す。
func (s *Service) ListContacts(ctx context.Context, actor *model.User, userID string) ([]*model.Contact, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}
	contacts, err := s.repos.Contacts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// CreateContact は連絡先を作成する。
func (s *Service) CreateContact(ctx context.Context, actor *model.User, in ContactInput) (*model.Contact, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	name := s.sanitizer.Clean(in.Name)
	if name == "" {
		return nil, model.NewValidationError("name is required.")
	}
	if !in.Kind.Valid() {
		return nil, model.NewValidationError("Unknown contact kind.", fmt.Sprintf("kind: %q", in.Kind))
	}

	c := &model.Contact{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Surname:     s.sanitizer.Clean(in.Surname),
		Telephone:   strings.TrimSpace(in.Telephone),
		Description: s.sanitizer.Clean(in.Description),
		Nickname:    s.sanitizer.Clean(in.Nickname),
		Kind:        in.Kind,
		CreatedAt:   s.now(),
	}
	if in.Picture != nil && strings.TrimSpace(*in.Picture) != "" {
		pic := strings.TrimSpace(*in.Picture)
		c.Picture = &pic
	}

	if err := s.repos.Contacts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return c, nil
}

// --- 感情 ---

// ListEmotions はユーザーの感情記録を新しい順で返す。
func (s *Service) ListEmotions(ctx context.Context, actor *model.User, userID string) ([]*model.Emotion, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}
	emotions, err := s.repos.Emotions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list emotions: %w", err)
	}
	return emotions, nil
}

// CreateEmotion は感情を記録する。
func (s *Service) CreateEmotion(ctx context.Context, actor *model.User, in EmotionInput) (*model.Emotion, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	kind := s.sanitizer.Clean(in.Kind)
	if kind == "" {
		return nil, model.NewValidationError("kind is required.")
	}
	if in.Intensity < 1 || in.Intensity > 5 {
		return nil, model.NewValidationError("intensity must be between 1 and 5.",
			fmt.Sprintf("intensity: %d", in.Intensity))
	}

	e := &model.Emotion{
		ID:         uuid.New().String(),
		UserID:     userID,
		Kind:       kind,
		Intensity:  in.Intensity,
		Note:       s.sanitizer.Clean(in.Note),
		RecordedAt: s.timeOrNow(in.RecordedAt),
	}
	if err := s.repos.Emotions.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create emotion: %w", err)
	}
	return e, nil
}

// --- アレルギー ---

// ListAllergies はユーザーのアレルギー一覧を返す。
func (s *Service) ListAllergies(ctx context.Context, actor *model.User, userID string) ([]*model.Allergy, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}
	allergies, err := s.repos.Allergies.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allergies: %w", err)
	}
	return allergies, nil
}

// CreateAllergy はアレルギーを登録する。
func (s *Service) CreateAllergy(ctx context.Context, actor *model.User, in AllergyInput) (*model.Allergy, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	name := s.sanitizer.Clean(in.Name)
	if name == "" {
		return nil, model.NewValidationError("name is required.")
	}
	if !in.Severity.Valid() {
		return nil, model.NewValidationError("Unknown severity.", fmt.Sprintf("severity: %q", in.Severity))
	}

	a := &model.Allergy{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Severity:  in.Severity,
		Reaction:  s.sanitizer.Clean(in.Reaction),
		Notes:     s.sanitizer.Clean(in.Notes),
		CreatedAt: s.now(),
	}
	if err := s.repos.Allergies.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create allergy: %w", err)
	}
	return a, nil
}

// DeleteAllergy はユーザーのアレルギーを削除する。
// 該当する記録がない場合はALLERGY_NOT_FOUNDを返す。
func (s *Service) DeleteAllergy(ctx context.Context, actor *model.User, userID, allergyID string) error {
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return err
	}

	if err := s.repos.Allergies.DeleteByUserAndID(ctx, userID, allergyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewAllergyNotFoundError(allergyID)
		}
		return fmt.Errorf("failed to delete allergy: %w", err)
	}

	slog.Info("allergy deleted",
		slog.String("allergy_id", allergyID),
		slog.String("user_id", userID),
		slog.String("deleted_by", actor.ID),
	)
	return nil
}

// --- 予定 ---

// ListEvents はユーザーの予定を開始日時順で返す。
func (s *Service) ListEvents(ctx context.Context, actor *model.User, userID string) ([]*model.Event, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}
	events, err := s.repos.Events.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// CreateEvent は予定を作成する。終了日時は開始日時以降でなければならない。
func (s *Service) CreateEvent(ctx context.Context, actor *model.User, in EventInput) (*model.Event, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	title := s.sanitizer.Clean(in.Title)
	if title == "" {
		return nil, model.NewValidationError("title is required.")
	}
	if in.StartsAt.IsZero() {
		return nil, model.NewValidationError("starts_at is required.")
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return nil, model.NewValidationError("ends_at must not be before starts_at.")
	}

	ev := &model.Event{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Clean(in.Description),
		Location:    s.sanitizer.Clean(in.Location),
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedAt:   s.now(),
	}
	if err := s.repos.Events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return ev, nil
}

// --- 位置情報 ---

// ListPositions はユーザーの位置情報を新しい順で返す。
func (s *Service) ListPositions(ctx context.Context, actor *model.User, userID string) ([]*model.Position, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}
	positions, err := s.repos.Positions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

// CreatePosition は位置情報を記録する。
func (s *Service) CreatePosition(ctx context.Context, actor *model.User, in PositionInput) (*model.Position, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	var details []string
	if in.Latitude < -90 || in.Latitude > 90 {
		details = append(details, fmt.Sprintf("latitude: %v is out of range", in.Latitude))
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		details = append(details, fmt.Sprintf("longitude: %v is out of range", in.Longitude))
	}
	if in.Accuracy != nil && *in.Accuracy < 0 {
		details = append(details, "accuracy: must not be negative")
	}
	if len(details) > 0 {
		return nil, model.NewValidationError("Invalid coordinates.", details...)
	}

	p := &model.Position{
		ID:         uuid.New().String(),
		UserID:     userID,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Accuracy:   in.Accuracy,
		RecordedAt: s.timeOrNow(in.RecordedAt),
	}
	if err := s.repos.Positions.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	return p, nil
}
