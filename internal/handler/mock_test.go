package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/healthpass/healthpass/internal/auth"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/passport"
	"github.com/healthpass/healthpass/internal/repository"
	"github.com/healthpass/healthpass/internal/schema"
	"github.com/healthpass/healthpass/internal/user"
	"github.com/healthpass/healthpass/internal/view"
)

const testSecret = "handler-test-session-secret"

// --- テスト用ユーザー ---

var (
	patientUser = &model.User{ID: "user-patient", Username: "nicolagreco", Name: "Nicola", Role: model.RolePatient}
	doctorUser  = &model.User{ID: "user-doctor", Username: "drhouse", Name: "Gregory", Role: model.RoleDoctor}
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, username, password string) (*model.Session, *model.User, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

// sessionsFor はセッションID→ユーザーの対応でGetCurrentUserを返す。
func sessionsFor(sessions map[string]*model.User) func(ctx context.Context, sessionID string) (*model.User, error) {
	return func(ctx context.Context, sessionID string) (*model.User, error) {
		return sessions[sessionID], nil
	}
}

type mockUserService struct {
	calls    int
	listFn   func(ctx context.Context, actor *model.User) ([]*model.User, error)
	getFn    func(ctx context.Context, actor *model.User, id string) (*model.User, error)
	createFn func(ctx context.Context, actor *model.User, in user.CreateInput) (*model.User, error)
	updateFn func(ctx context.Context, actor *model.User, id string, in user.UpdateInput) (*model.User, error)
	deleteFn func(ctx context.Context, actor *model.User, id string) error
}

func (m *mockUserService) List(ctx context.Context, actor *model.User) ([]*model.User, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockUserService) Get(ctx context.Context, actor *model.User, id string) (*model.User, error) {
	m.calls++
	if m.getFn != nil {
		return m.getFn(ctx, actor, id)
	}
	return nil, model.NewUserNotFoundError(id)
}

func (m *mockUserService) Create(ctx context.Context, actor *model.User, in user.CreateInput) (*model.User, error) {
	m.calls++
	if m.createFn != nil {
		return m.createFn(ctx, actor, in)
	}
	return nil, nil
}

func (m *mockUserService) Update(ctx context.Context, actor *model.User, id string, in user.UpdateInput) (*model.User, error) {
	m.calls++
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, in)
	}
	return nil, model.NewUserNotFoundError(id)
}

func (m *mockUserService) Delete(ctx context.Context, actor *model.User, id string) error {
	m.calls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

type mockQuestionService struct {
	calls    int
	listFn   func(ctx context.Context, actor *model.User, userID string) ([]*model.Question, error)
	createFn func(ctx context.Context, actor *model.User, in passport.QuestionInput) (*model.Question, error)
	answerFn func(ctx context.Context, actor *model.User, questionID, answer string) (*model.Question, error)
}

func (m *mockQuestionService) ListQuestions(ctx context.Context, actor *model.User, userID string) ([]*model.Question, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockQuestionService) CreateQuestion(ctx context.Context, actor *model.User, in passport.QuestionInput) (*model.Question, error) {
	m.calls++
	if m.createFn != nil {
		return m.createFn(ctx, actor, in)
	}
	return &model.Question{ID: "q-1", UserID: actor.ID, Title: in.Title}, nil
}

func (m *mockQuestionService) AnswerQuestion(ctx context.Context, actor *model.User, questionID, answer string) (*model.Question, error) {
	m.calls++
	if m.answerFn != nil {
		return m.answerFn(ctx, actor, questionID, answer)
	}
	return nil, model.NewQuestionNotFoundError(questionID)
}

// mockRecordService は連絡先、感情、アレルギー、予定、位置情報のモック。
type mockRecordService struct {
	calls            int
	listContactsFn   func(ctx context.Context, actor *model.User, userID string) ([]*model.Contact, error)
	createContactFn  func(ctx context.Context, actor *model.User, in passport.ContactInput) (*model.Contact, error)
	createEmotionFn  func(ctx context.Context, actor *model.User, in passport.EmotionInput) (*model.Emotion, error)
	createAllergyFn  func(ctx context.Context, actor *model.User, in passport.AllergyInput) (*model.Allergy, error)
	deleteAllergyFn  func(ctx context.Context, actor *model.User, userID, allergyID string) error
	createEventFn    func(ctx context.Context, actor *model.User, in passport.EventInput) (*model.Event, error)
	createPositionFn func(ctx context.Context, actor *model.User, in passport.PositionInput) (*model.Position, error)
}

func (m *mockRecordService) ListContacts(ctx context.Context, actor *model.User, userID string) ([]*model.Contact, error) {
	m.calls++
	if m.listContactsFn != nil {
		return m.listContactsFn(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockRecordService) CreateContact(ctx context.Context, actor *model.User, in passport.ContactInput) (*model.Contact, error) {
	m.calls++
	if m.createContactFn != nil {
		return m.createContactFn(ctx, actor, in)
	}
	return &model.Contact{ID: "c-1", UserID: actor.ID, Name: in.Name, Kind: in.Kind}, nil
}

func (m *mockRecordService) ListEmotions(ctx context.Context, actor *model.User, userID string) ([]*model.Emotion, error) {
	m.calls++
	return nil, nil
}

func (m *mockRecordService) CreateEmotion(ctx context.Context, actor *model.User, in passport.EmotionInput) (*model.Emotion, error) {
	m.calls++
	if m.createEmotionFn != nil {
		return m.createEmotionFn(ctx, actor, in)
	}
	return &model.Emotion{ID: "e-1", UserID: actor.ID, Kind: in.Kind, Intensity: in.Intensity}, nil
}

func (m *mockRecordService) ListAllergies(ctx context.Context, actor *model.User, userID string) ([]*model.Allergy, error) {
	m.calls++
	return nil, nil
}

func (m *mockRecordService) CreateAllergy(ctx context.Context, actor *model.User, in passport.AllergyInput) (*model.Allergy, error) {
	m.calls++
	if m.createAllergyFn != nil {
		return m.createAllergyFn(ctx, actor, in)
	}
	return &model.Allergy{ID: "a-1", UserID: actor.ID, Name: in.Name, Severity: in.Severity}, nil
}

func (m *mockRecordService) DeleteAllergy(ctx context.Context, actor *model.User, userID, allergyID string) error {
	m.calls++
	if m.deleteAllergyFn != nil {
		return m.deleteAllergyFn(ctx, actor, userID, allergyID)
	}
	return nil
}

func (m *mockRecordService) ListEvents(ctx context.Context, actor *model.User, userID string) ([]*model.Event, error) {
	m.calls++
	return nil, nil
}

func (m *mockRecordService) CreateEvent(ctx context.Context, actor *model.User, in passport.EventInput) (*model.Event, error) {
	m.calls++
	if m.createEventFn != nil {
		return m.createEventFn(ctx, actor, in)
	}
	return &model.Event{ID: "ev-1", UserID: actor.ID, Title: in.Title, StartsAt: in.StartsAt, EndsAt: in.EndsAt}, nil
}

func (m *mockRecordService) ListPositions(ctx context.Context, actor *model.User, userID string) ([]*model.Position, error) {
	m.calls++
	return nil, nil
}

func (m *mockRecordService) CreatePosition(ctx context.Context, actor *model.User, in passport.PositionInput) (*model.Position, error) {
	m.calls++
	if m.createPositionFn != nil {
		return m.createPositionFn(ctx, actor, in)
	}
	return &model.Position{ID: "p-1", UserID: actor.ID, Latitude: in.Latitude, Longitude: in.Longitude}, nil
}

type mockPictureService struct {
	calls           int
	listFn          func(ctx context.Context) ([]*model.Picture, error)
	createFromURLFn func(ctx context.Context, rawURL string, mirror bool) (*model.Picture, error)
	uploadFn        func(ctx context.Context, data []byte) (*model.Picture, error)
}

func (m *mockPictureService) List(ctx context.Context) ([]*model.Picture, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPictureService) CreateFromURL(ctx context.Context, rawURL string, mirror bool) (*model.Picture, error) {
	m.calls++
	if m.createFromURLFn != nil {
		return m.createFromURLFn(ctx, rawURL, mirror)
	}
	return &model.Picture{ID: "pic-1", URL: rawURL}, nil
}

func (m *mockPictureService) Upload(ctx context.Context, data []byte) (*model.Picture, error) {
	m.calls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, data)
	}
	return &model.Picture{ID: "pic-2", URL: "http://localhost:3000/pictures/pic-2.png"}, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- インメモリリポジトリ（実サービスを通すテスト用） ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo(seed ...*model.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range seed {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) List(ctx context.Context) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type nopSessionRepo struct{}

func (nopSessionRepo) Create(ctx context.Context, s *model.Session) error { return nil }

func (nopSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (nopSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func (nopSessionRepo) DeleteByUserID(ctx context.Context, userID string) error { return nil }

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

type identitySanitizer struct{}

func (identitySanitizer) Clean(s string) string { return s }

// --- ルーター組み立て ---

// testEnv はテスト用ルーターと差し替え可能なモックを保持する。
type testEnv struct {
	auth     *mockAuthService
	users    *mockUserService
	qs       *mockQuestionService
	records  *mockRecordService
	pictures *mockPictureService
	health   *mockHealthChecker
	deps     *RouterDeps
}

// newTestEnv はpatientUserとdoctorUserのセッションを持つ依存関係を構築する。
// セッションIDはそれぞれ"sess-patient"と"sess-doctor"。
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	validator, err := schema.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	env := &testEnv{
		auth: &mockAuthService{
			getCurrentUserFn: sessionsFor(map[string]*model.User{
				"sess-patient": patientUser,
				"sess-doctor":  doctorUser,
			}),
		},
		users:    &mockUserService{},
		qs:       &mockQuestionService{},
		records:  &mockRecordService{},
		pictures: &mockPictureService{},
		health:   &mockHealthChecker{},
	}
	env.deps = &RouterDeps{
		AuthService:     env.auth,
		Signer:          auth.NewCookieSigner(testSecret),
		AuthConfig:      AuthHandlerConfig{SessionMaxAge: 3600},
		Renderer:        renderer,
		Decoder:         validator,
		UserService:     env.users,
		QuestionService: env.qs,
		Records: RecordServices{
			Contacts:  env.records,
			Emotions:  env.records,
			Allergies: env.records,
			Events:    env.records,
			Positions: env.records,
		},
		PictureService: env.pictures,
		PictureMaxSize: 1 << 20,
		HealthChecker:  env.health,
	}
	return env
}

func (e *testEnv) router() http.Handler {
	return NewRouter(e.deps)
}

func (e *testEnv) serviceCalls() int {
	return e.users.calls + e.qs.calls + e.records.calls + e.pictures.calls
}

// sessionCookie は署名済みのセッションCookieを返す。
func sessionCookie(sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:  auth.SessionCookieName,
		Value: auth.NewCookieSigner(testSecret).Sign(sessionID),
	}
}

// doJSON はJSONボディ付きのリクエストをルーターに送る。sessionIDが空なら未認証。
func doJSON(t *testing.T, h http.Handler, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("failed to encode body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(sessionCookie(sessionID))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeError はエラーレスポンスのボディをデコードする。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

type errorBody struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Action   string   `json:"action"`
	Details  []string `json:"details"`
}
