package passport

import (
	"context"
	"strings"
	"time"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	repository.UserRepository
	users map[string]*model.User
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return m.users[id], nil
}

type mockPictureRepo struct {
	repository.PictureRepository
	pictures map[string]*model.Picture
}

func (m *mockPictureRepo) FindByID(_ context.Context, id string) (*model.Picture, error) {
	return m.pictures[id], nil
}

type mockQuestionRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.Question, error)
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.Question, error)
	createFn       func(ctx context.Context, q *model.Question) error
	updateAnswerFn func(ctx context.Context, q *model.Question) error
}

func (m *mockQuestionRepo) FindByID(ctx context.Context, id string) (*model.Question, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockQuestionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Question, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	if m.createFn != nil {
		return m.createFn(ctx, q)
	}
	return nil
}

func (m *mockQuestionRepo) UpdateAnswer(ctx context.Context, q *model.Question) error {
	if m.updateAnswerFn != nil {
		return m.updateAnswerFn(ctx, q)
	}
	return nil
}

type mockContactRepo struct {
	created []*model.Contact
}

func (m *mockContactRepo) ListByUserID(_ context.Context, userID string) ([]*model.Contact, error) {
	var out []*model.Contact
	for _, c := range m.created {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactRepo) Create(_ context.Context, c *model.Contact) error {
	m.created = append(m.created, c)
	return nil
}

type mockEmotionRepo struct {
	created []*model.Emotion
}

func (m *mockEmotionRepo) ListByUserID(context.Context, string) ([]*model.Emotion, error) {
	return m.created, nil
}

func (m *mockEmotionRepo) Create(_ context.Context, e *model.Emotion) error {
	m.created = append(m.created, e)
	return nil
}

type mockAllergyRepo struct {
	created           []*model.Allergy
	deleteByUserAndID func(ctx context.Context, userID, id string) error
}

func (m *mockAllergyRepo) ListByUserID(context.Context, string) ([]*model.Allergy, error) {
	return m.created, nil
}

func (m *mockAllergyRepo) Create(_ context.Context, a *model.Allergy) error {
	m.created = append(m.created, a)
	return nil
}

func (m *mockAllergyRepo) DeleteByUserAndID(ctx context.Context, userID, id string) error {
	if m.deleteByUserAndID != nil {
		return m.deleteByUserAndID(ctx, userID, id)
	}
	return nil
}

type mockEventRepo struct {
	created []*model.Event
}

func (m *mockEventRepo) ListByUserID(context.Context, string) ([]*model.Event, error) {
	return m.created, nil
}

func (m *mockEventRepo) Create(_ context.Context, e *model.Event) error {
	m.created = append(m.created, e)
	return nil
}

type mockPositionRepo struct {
	created []*model.Position
}

func (m *mockPositionRepo) ListByUserID(context.Context, string) ([]*model.Position, error) {
	return m.created, nil
}

func (m *mockPositionRepo) Create(_ context.Context, p *model.Position) error {
	m.created = append(m.created, p)
	return nil
}

// tagStripper は山括弧で囲まれた部分を取り除くだけの簡易サニタイザ。
type tagStripper struct{}

func (tagStripper) Clean(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var (
	doctor    = &model.User{ID: "doctor-1", Role: model.RoleDoctor}
	caregiver = &model.User{ID: "care-1", Role: model.RoleCaregiver}
	patient   = &model.User{ID: "patient-1", Role: model.RolePatient}
	other     = &model.User{ID: "patient-2", Role: model.RolePatient}
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	questions *mockQuestionRepo
	contacts  *mockContactRepo
	emotions  *mockEmotionRepo
	allergies *mockAllergyRepo
	events    *mockEventRepo
	positions *mockPositionRepo
}

func newFixture() *fixture {
	f := &fixture{
		questions: &mockQuestionRepo{},
		contacts:  &mockContactRepo{},
		emotions:  &mockEmotionRepo{},
		allergies: &mockAllergyRepo{},
		events:    &mockEventRepo{},
		positions: &mockPositionRepo{},
	}
	users := &mockUserRepo{users: map[string]*model.User{
		doctor.ID: doctor, caregiver.ID: caregiver, patient.ID: patient, other.ID: other,
	}}
	pictures := &mockPictureRepo{pictures: map[string]*model.Picture{
		"pic-1": {ID: "pic-1", URL: "http://healthpassport.herokuapp.com/pictures/apple.jpg"},
	}}
	f.svc = NewService(Repositories{
		Users:     users,
		Pictures:  pictures,
		Questions: f.questions,
		Contacts:  f.contacts,
		Emotions:  f.emotions,
		Allergies: f.allergies,
		Events:    f.events,
		Positions: f.positions,
	}, tagStripper{})
	f.svc.now = func() time.Time { return fixedNow }
	return f
}
