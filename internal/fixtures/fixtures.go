// Package fixtures は開発・動作確認用の初期データを投入する。
//
// 投入は冪等であり、同じユーザー名が既に存在する場合はそのユーザーと関連データを作成しない。
// 関連データの投入に失敗したユーザーは削除するため、再実行で完全なデータに収束する。
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Account は投入するユーザーと、そのユーザーに紐づく記録の定義。
type Account struct {
	Username  string
	Password  string
	Name      string
	Surname   string
	Email     string
	Role      model.Role
	Telephone string
	Patient   *model.Patient
	Questions []QuestionFixture
	Contacts  []model.Contact
}

// QuestionFixture は画像付き質問の定義。
type QuestionFixture struct {
	Title      string
	PictureURL string
}

const pictureBase = "http://healthpassport.herokuapp.com/pictures/"

// DefaultAccounts は標準の初期データ。
func DefaultAccounts() []Account {
	return []Account{
		{
			Username:  "nicolagreco",
			Password:  "pass",
			Name:      "Nicola",
			Surname:   "Greco",
			Email:     "email@example.org",
			Role:      model.RolePatient,
			Telephone: "07707760897",
			Patient: &model.Patient{
				DisabilityLevel:    1,
				UnderstandingLevel: 2,
				CommunicationType:  3,
				SupportHours:       12,
			},
			Questions: []QuestionFixture{
				{Title: "This is question one", PictureURL: pictureBase + "apple.jpg"},
				{Title: "This is question one", PictureURL: pictureBase + "apple.jpg"},
				{Title: "This is question one", PictureURL: pictureBase + "bananas.jpg"},
			},
			Contacts: []model.Contact{
				{Name: "Enrico", Surname: "Greco", Telephone: "07707760897", Description: "The father", Nickname: "Daddy", Kind: model.ContactKindRelative},
				{Name: "Vittoria", Surname: "Pasceri", Telephone: "3286154544", Description: "The mother", Nickname: "Mommy", Kind: model.ContactKindDoctor},
				{Name: "Raluca", Surname: "Cocioban", Telephone: "07766554433", Description: "School friend", Nickname: "Raluca", Kind: model.ContactKindFriend},
			},
		},
		{
			Username: "drhouse",
			Password: "doctor",
			Name:     "Gregory",
			Surname:  "House",
			Email:    "doctor@example.org",
			Role:     model.RoleDoctor,
		},
	}
}

// Seeder は初期データをリポジトリへ投入する。
type Seeder struct {
	users     repository.UserRepository
	pictures  repository.PictureRepository
	questions repository.QuestionRepository
	contacts  repository.ContactRepository
	hasher    PasswordHasher
}

// NewSeeder はSeederの新しいインスタンスを生成する。
func NewSeeder(
	users repository.UserRepository,
	pictures repository.PictureRepository,
	questions repository.QuestionRepository,
	contacts repository.ContactRepository,
	hasher PasswordHasher,
) *Seeder {
	return &Seeder{
		users:     users,
		pictures:  pictures,
		questions: questions,
		contacts:  contacts,
		hasher:    hasher,
	}
}

// Result は投入結果。
type Result struct {
	Created []string // 作成したユーザー名
	Skipped []string // 既に存在したユーザー名
}

// Seed はaccountsを順に投入する。
func (s *Seeder) Seed(ctx context.Context, accounts []Account) (*Result, error) {
	res := &Result{}
	for _, a := range accounts {
		existing, err := s.users.FindByUsername(ctx, a.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check user %s: %w", a.Username, err)
		}
		if existing != nil {
			res.Skipped = append(res.Skipped, a.Username)
			continue
		}

		if err := s.seedAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", a.Username, err)
		}
		res.Created = append(res.Created, a.Username)
	}

	slog.Info("fixtures loaded",
		slog.Int("created", len(res.Created)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (s *Seeder) seedAccount(ctx context.Context, a Account) error {
	hash, err := s.hasher.Hash(a.Password)
	if err != nil {
		return err
	}

	now := time.Now()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     a.Username,
		PasswordHash: hash,
		Name:         a.Name,
		Surname:      a.Surname,
		Email:        a.Email,
		Role:         a.Role,
		Telephone:    a.Telephone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.Patient != nil {
		p := *a.Patient
		p.UserID = u.ID
		u.Patient = &p
	}
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}

	if err := s.seedRecords(ctx, u.ID, a, now); err != nil {
		// CASCADEで作成済みの質問・連絡先も消える
		if delErr := s.users.DeleteByID(ctx, u.ID); delErr != nil {
			slog.Error("failed to roll back partially seeded user",
				slog.String("username", a.Username),
				slog.String("error", delErr.Error()),
			)
			return errors.Join(err, delErr)
		}
		return err
	}
	return nil
}

func (s *Seeder) seedRecords(ctx context.Context, userID string, a Account, now time.Time) error {
	for _, qf := range a.Questions {
		pic := &model.Picture{ID: uuid.New().String(), URL: qf.PictureURL, CreatedAt: now}
		if err := s.pictures.Create(ctx, pic); err != nil {
			return err
		}
		q := &model.Question{
			ID:        uuid.New().String(),
			UserID:    userID,
			PictureID: &pic.ID,
			Title:     qf.Title,
			CreatedAt: now,
		}
		if err := s.questions.Create(ctx, q); err != nil {
			return err
		}
	}

	for _, c := range a.Contacts {
		c.ID = uuid.New().String()
		c.UserID = userID
		c.CreatedAt = now
		if err := s.contacts.Create(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}
