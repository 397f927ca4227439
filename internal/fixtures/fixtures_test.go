package fixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/healthpass/healthpass/internal/model"
)

// --- インメモリのリポジトリ ---

type memUsers struct {
	byName   map[string]*model.User
	onDelete func(id string)
}

func (m *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}
func (m *memUsers) FindByUsername(_ context.Context, name string) (*model.User, error) {
	return m.byName[name], nil
}
func (m *memUsers) List(context.Context) ([]*model.User, error) { return nil, nil }
func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.byName[u.Username] = u
	return nil
}
func (m *memUsers) Update(context.Context, *model.User) error { return nil }
func (m *memUsers) DeleteByID(_ context.Context, id string) error {
	for name, u := range m.byName {
		if u.ID == id {
			delete(m.byName, name)
			if m.onDelete != nil {
				m.onDelete(id)
			}
			return nil
		}
	}
	return nil
}

type memPictures struct{ items []*model.Picture }

func (m *memPictures) FindByID(context.Context, string) (*model.Picture, error) { return nil, nil }
func (m *memPictures) List(context.Context) ([]*model.Picture, error) { return m.items, nil }
func (m *memPictures) Create(_ context.Context, p *model.Picture) error {
	m.items = append(m.items, p)
	return nil
}

type memQuestions struct{ items []*model.Question }

func (m *memQuestions) FindByID(context.Context, string) (*model.Question, error) { return nil, nil }
func (m *memQuestions) ListByUserID(context.Context, string) ([]*model.Question, error) {
	return m.items, nil
}
func (m *memQuestions) Create(_ context.Context, q *model.Question) error {
	m.items = append(m.items, q)
	return nil
}
func (m *memQuestions) UpdateAnswer(context.Context, *model.Question) error { return nil }

type memContacts struct {
	items []*model.Contact
	err   error
}

func (m *memContacts) ListByUserID(context.Context, string) ([]*model.Contact, error) {
	return m.items, nil
}
func (m *memContacts) Create(_ context.Context, c *model.Contact) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, c)
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

type stores struct {
	users     *memUsers
	pictures  *memPictures
	questions *memQuestions
	contacts  *memContacts
}

func newSeeder() (*Seeder, *stores) {
	st := &stores{
		users:     &memUsers{byName: map[string]*model.User{}},
		pictures:  &memPictures{},
		questions: &memQuestions{},
		contacts:  &memContacts{},
	}
	// ON DELETE CASCADE を再現する
	st.users.onDelete = func(id string) {
		st.questions.items = filterByUser(st.questions.items, id, func(q *model.Question) string { return q.UserID })
		st.contacts.items = filterByUser(st.contacts.items, id, func(c *model.Contact) string { return c.UserID })
	}
	return NewSeeder(st.users, st.pictures, st.questions, st.contacts, plainHasher{}), st
}

func filterByUser[T any](items []T, userID string, owner func(T) string) []T {
	kept := items[:0]
	for _, it := range items {
		if owner(it) != userID {
			kept = append(kept, it)
		}
	}
	return kept
}

// --- テスト ---

func TestSeed_DefaultAccounts(t *testing.T) {
	seeder, st := newSeeder()

	res, err := seeder.Seed(context.Background(), DefaultAccounts())
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(res.Created) != 2 {
		t.Errorf("Created = %v, want 2 accounts", res.Created)
	}

	nicola := st.users.byName["nicolagreco"]
	if nicola == nil {
		t.Fatal("nicolagreco not created")
	}
	if nicola.PasswordHash != "h:pass" {
		t.Errorf("PasswordHash = %q, want hashed", nicola.PasswordHash)
	}
	if nicola.Patient == nil || nicola.Patient.UserID != nicola.ID || nicola.Patient.SupportHours != 12 {
		t.Errorf("Patient = %+v", nicola.Patient)
	}
	if len(st.pictures.items) != 3 || len(st.questions.items) != 3 {
		t.Errorf("pictures=%d questions=%d, want 3 each", len(st.pictures.items), len(st.questions.items))
	}
	for _, q := range st.questions.items {
		if q.PictureID == nil || q.UserID != nicola.ID {
			t.Errorf("question %+v not linked", q)
		}
	}
	if len(st.contacts.items) != 3 {
		t.Fatalf("contacts = %d, want 3", len(st.contacts.items))
	}
	if st.contacts.items[0].ID == st.contacts.items[1].ID {
		t.Error("contacts must get distinct ids")
	}
	if st.contacts.items[1].Nickname != "Mommy" || st.contacts.items[1].Kind != model.ContactKindDoctor {
		t.Errorf("second contact = %+v", st.contacts.items[1])
	}

	if doc := st.users.byName["drhouse"]; doc == nil || doc.Role != model.RoleDoctor {
		t.Errorf("doctor account = %+v", doc)
	}
}

func TestSeed_Idempotent(t *testing.T) {
	seeder, st := newSeeder()
	ctx := context.Background()

	if _, err := seeder.Seed(ctx, DefaultAccounts()); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}
	res, err := seeder.Seed(ctx, DefaultAccounts())
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if len(res.Created) != 0 || len(res.Skipped) != 2 {
		t.Errorf("second run = %+v, want all skipped", res)
	}
	if len(st.questions.items) != 3 || len(st.contacts.items) != 3 {
		t.Error("second run must not duplicate records")
	}
}

// TestSeed_StoreError は途中で失敗したユーザーが削除され、
// 再実行で完全なデータが投入されることを検証する。
func TestSeed_StoreError(t *testing.T) {
	seeder, st := newSeeder()
	ctx := context.Background()
	st.contacts.err = errors.New("insert failed")

	if _, err := seeder.Seed(ctx, DefaultAccounts()); err == nil {
		t.Fatal("expected error")
	}
	if u, _ := st.users.FindByUsername(ctx, "nicolagreco"); u != nil {
		t.Fatal("partially seeded user must be removed")
	}
	if len(st.questions.items) != 0 {
		t.Errorf("questions = %d, want 0 after rollback", len(st.questions.items))
	}

	st.contacts.err = nil
	res, err := seeder.Seed(ctx, DefaultAccounts())
	if err != nil {
		t.Fatalf("rerun Seed() error = %v", err)
	}
	if len(res.Created) != 2 {
		t.Errorf("Created = %v, want both accounts", res.Created)
	}
	if len(st.questions.items) != 3 || len(st.contacts.items) != 3 {
		t.Errorf("questions = %d contacts = %d, want 3 and 3", len(st.questions.items), len(st.contacts.items))
	}
}
