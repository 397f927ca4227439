package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	listFn           func(ctx context.Context) ([]*model.User, error)
	createFn         func(ctx context.Context, u *model.User) error
	updateFn         func(ctx context.Context, u *model.User) error
	deleteByIDFn     func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(context.Context, *model.Session) error { return nil }
func (m *mockSessionRepo) FindByID(context.Context, string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(context.Context, string) error { return nil }
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type passthroughSanitizer struct{}

func (passthroughSanitizer) Clean(s string) string { return s }

var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

var (
	doctor    = &model.User{ID: "doctor-1", Role: model.RoleDoctor}
	caregiver = &model.User{ID: "care-1", Role: model.RoleCaregiver}
	patient   = &model.User{ID: "patient-1", Role: model.RolePatient}
)

func newService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	if sessionRepo == nil {
		sessionRepo = &mockSessionRepo{}
	}
	return NewService(userRepo, sessionRepo, fakeHasher{}, passthroughSanitizer{})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

// --- テスト ---

func TestCreate_HashesPasswordAndAssignsID(t *testing.T) {
	var created *model.User
	svc := newService(&mockUserRepo{
		createFn: func(_ context.Context, u *model.User) error {
			created = u
			return nil
		},
	}, nil)

	u, err := svc.Create(context.Background(), doctor, CreateInput{
		Username: " nicolagreco ",
		Password: "pass",
		Name:     "Nicola",
		Patient:  &PatientInput{SupportHours: intPtr(12)},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Error("expected assigned ID")
	}
	if u.Username != "nicolagreco" {
		t.Errorf("Username = %q, want trimmed", u.Username)
	}
	if u.Role != model.RolePatient {
		t.Errorf("Role = %q, want default patient", u.Role)
	}
	if created.PasswordHash != "hashed:pass" {
		t.Errorf("PasswordHash = %q, plaintext must never be stored", created.PasswordHash)
	}
	if u.Patient == nil || u.Patient.SupportHours != 12 {
		t.Errorf("Patient = %+v", u.Patient)
	}
}

func TestCreate_DuplicateUsername_Conflict(t *testing.T) {
	createCalled := false
	svc := newService(&mockUserRepo{
		findByUsernameFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
		createFn: func(context.Context, *model.User) error {
			createCalled = true
			return nil
		},
	}, nil)

	_, err := svc.Create(context.Background(), doctor, CreateInput{Username: "dup", Password: "pass"})
	assertCode(t, err, model.ErrCodeConflict)
	if createCalled {
		t.Error("repository Create must not be called for a duplicate username")
	}
}

func TestCreate_UniqueViolationRace_Conflict(t *testing.T) {
	svc := newService(&mockUserRepo{
		createFn: func(context.Context, *model.User) error { return repository.ErrDuplicate },
	}, nil)

	_, err := svc.Create(context.Background(), caregiver, CreateInput{Username: "dup", Password: "pass"})
	assertCode(t, err, model.ErrCodeConflict)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService(&mockUserRepo{}, nil)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"ユーザー名が空", CreateInput{Username: "  ", Password: "pass"}},
		{"パスワードが空", CreateInput{Username: "a"}},
		{"不明なrole", CreateInput{Username: "a", Password: "p", Role: "admin"}},
		{"患者以外の患者情報", CreateInput{Username: "a", Password: "p", Role: model.RoleDoctor, Patient: &PatientInput{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), doctor, tt.in)
			assertCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestCreate_PatientCannotCreateUsers(t *testing.T) {
	svc := newService(&mockUserRepo{}, nil)

	_, err := svc.Create(context.Background(), patient, CreateInput{Username: "a", Password: "p"})
	assertCode(t, err, model.ErrCodeForbidden)
}

// TestCreate_CaregiverCanOnlyCreatePatients は介護者が医師・介護者を作成できないことを検証する。
func TestCreate_CaregiverCanOnlyCreatePatients(t *testing.T) {
	createCalled := false
	svc := newService(&mockUserRepo{
		createFn: func(context.Context, *model.User) error {
			createCalled = true
			return nil
		},
	}, nil)
	ctx := context.Background()

	for _, role := range []model.Role{model.RoleDoctor, model.RoleCaregiver} {
		t.Run(string(role), func(t *testing.T) {
			_, err := svc.Create(ctx, caregiver, CreateInput{Username: "evil", Password: "pass", Role: role})
			assertCode(t, err, model.ErrCodeForbidden)
		})
	}
	if createCalled {
		t.Error("repository Create must not be called")
	}

	u, err := svc.Create(ctx, caregiver, CreateInput{Username: "newpatient", Password: "pass"})
	if err != nil {
		t.Fatalf("caregiver creating patient error = %v", err)
	}
	if u.Role != model.RolePatient {
		t.Errorf("Role = %q, want patient", u.Role)
	}

	if _, err := svc.Create(ctx, doctor, CreateInput{Username: "drwilson", Password: "pass", Role: model.RoleDoctor}); err != nil {
		t.Errorf("doctor creating doctor error = %v", err)
	}
}

// TestPassword_ByteLengthLimit はパスワードの上限を文字数ではなくバイト数で判定することを検証する。
func TestPassword_ByteLengthLimit(t *testing.T) {
	svc := newService(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return &model.User{ID: "patient-1", Role: model.RolePatient}, nil
		},
	}, nil)
	ctx := context.Background()
	long := strings.Repeat("é", 40) // 40文字・80バイト

	_, err := svc.Create(ctx, doctor, CreateInput{Username: "a", Password: long})
	assertCode(t, err, model.ErrCodeValidation)

	_, err = svc.Update(ctx, patient, "patient-1", UpdateInput{Password: &long})
	assertCode(t, err, model.ErrCodeValidation)

	ok := strings.Repeat("a", MaxPasswordBytes)
	if _, err := svc.Create(ctx, doctor, CreateInput{Username: "b", Password: ok}); err != nil {
		t.Errorf("Create(72 bytes) error = %v", err)
	}
}

func TestGet(t *testing.T) {
	svc := newService(&mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == "patient-1" {
				return patient, nil
			}
			return nil, nil
		},
	}, nil)
	ctx := context.Background()

	if u, err := svc.Get(ctx, patient, "patient-1"); err != nil || u.ID != "patient-1" {
		t.Errorf("self Get = %+v, %v", u, err)
	}
	if _, err := svc.Get(ctx, caregiver, "patient-1"); err != nil {
		t.Errorf("caregiver Get error = %v", err)
	}

	_, err := svc.Get(ctx, patient, "patient-2")
	assertCode(t, err, model.ErrCodeForbidden)

	_, err = svc.Get(ctx, doctor, "missing")
	assertCode(t, err, model.ErrCodeUserNotFound)
}

func TestList_RequiresStaff(t *testing.T) {
	svc := newService(&mockUserRepo{
		listFn: func(context.Context) ([]*model.User, error) {
			return []*model.User{patient, doctor}, nil
		},
	}, nil)

	users, err := svc.List(context.Background(), caregiver)
	if err != nil || len(users) != 2 {
		t.Errorf("List() = %v, %v", users, err)
	}

	_, err = svc.List(context.Background(), patient)
	assertCode(t, err, model.ErrCodeForbidden)
}

func TestUpdate_PartialMerge(t *testing.T) {
	stored := &model.User{
		ID: "patient-1", Username: "nicolagreco", PasswordHash: "old", Name: "Nicola", Surname: "Greco",
		Role: model.RolePatient, Patient: &model.Patient{UserID: "patient-1", DisabilityLevel: 1, SupportHours: 12},
	}
	var saved *model.User
	svc := newService(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			cp := *stored
			return &cp, nil
		},
		updateFn: func(_ context.Context, u *model.User) error {
			saved = u
			return nil
		},
	}, nil)

	u, err := svc.Update(context.Background(), patient, "patient-1", UpdateInput{
		Name:    strPtr("Nico"),
		Patient: &PatientInput{SupportHours: intPtr(8)},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if u.Name != "Nico" || u.Surname != "Greco" {
		t.Errorf("unexpected merge result: %+v", u)
	}
	if saved.PasswordHash != "old" {
		t.Error("absent password must leave the hash untouched")
	}
	if u.Patient.SupportHours != 8 || u.Patient.DisabilityLevel != 1 {
		t.Errorf("patient merge = %+v", u.Patient)
	}
}

func TestUpdate_AccessRules(t *testing.T) {
	svc := newService(&mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RolePatient}, nil
		},
	}, nil)
	ctx := context.Background()
	role := model.RoleDoctor

	_, err := svc.Update(ctx, caregiver, "patient-1", UpdateInput{Name: strPtr("x")})
	assertCode(t, err, model.ErrCodeForbidden)

	_, err = svc.Update(ctx, patient, "patient-1", UpdateInput{Role: &role})
	assertCode(t, err, model.ErrCodeForbidden)

	if _, err := svc.Update(ctx, doctor, "patient-1", UpdateInput{Role: &role}); err != nil {
		t.Errorf("doctor role change error = %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newService(&mockUserRepo{}, nil)

	_, err := svc.Update(context.Background(), doctor, "missing", UpdateInput{})
	assertCode(t, err, model.ErrCodeUserNotFound)
}

func TestDelete_RemovesSessionsThenUser(t *testing.T) {
	var order []string
	svc := newService(&mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(context.Context, string) error {
			order = append(order, "user")
			return nil
		},
	}, &mockSessionRepo{
		deleteByUserIDFn: func(context.Context, string) error {
			order = append(order, "sessions")
			return nil
		},
	})

	if err := svc.Delete(context.Background(), patient, "patient-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(order) != 2 || order[0] != "sessions" || order[1] != "user" {
		t.Errorf("delete order = %v", order)
	}
}

func TestDelete_AccessAndNotFound(t *testing.T) {
	svc := newService(&mockUserRepo{}, nil)
	ctx := context.Background()

	err := svc.Delete(ctx, caregiver, "patient-1")
	assertCode(t, err, model.ErrCodeForbidden)

	err = svc.Delete(ctx, doctor, "missing")
	assertCode(t, err, model.ErrCodeUserNotFound)
}

func TestDelete_SessionErrorStopsDeletion(t *testing.T) {
	deleted := false
	svc := newService(&mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}, &mockSessionRepo{
		deleteByUserIDFn: func(context.Context, string) error { return errors.New("redis down") },
	})

	if err := svc.Delete(context.Background(), doctor, "patient-1"); err == nil {
		t.Fatal("expected error")
	}
	if deleted {
		t.Error("user must not be deleted when session cleanup fails")
	}
}
