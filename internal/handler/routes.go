package handler

import (
	"net/http"
)

// AuthMode はルートに適用するセッション認証の種類。
type AuthMode int

const (
	// AuthNone は認証不要。
	AuthNone AuthMode = iota
	// AuthOptional は認証不要だが、ログイン済みならユーザーを注入する。
	AuthOptional
	// AuthPage は未認証時に/loginへリダイレクトする。
	AuthPage
	// AuthAPI は未認証時に401 JSONを返し、ユーザー単位のレート制限を適用する。
	AuthAPI
)

// Route はルートマニフェストの1エントリ。
// ルーターと/api/v1のルート一覧はこの定義だけを参照する。
type Route struct {
	Method      string
	Path        string
	Auth        AuthMode
	Handler     http.Handler
	Middlewares []func(http.Handler) http.Handler // 認証の後に適用する追加ミドルウェア
}

// routeHandlers はマニフェストが参照するハンドラー群。
type routeHandlers struct {
	auth      *AuthHandler
	pages     *PageHandler
	health    *HealthHandler
	users     *UserHandler
	questions *QuestionHandler
	records   *RecordHandler
	pictures  *PictureHandler
	apiIndex  http.Handler
	metrics   http.Handler // nilの場合は/metricsを公開しない
	media     http.Handler // ファイルシステム保存時のみ
	loginRate func(http.Handler) http.Handler
}

// buildRoutes はアプリケーションの全ルートを宣言順に返す。
func buildRoutes(h routeHandlers) []Route {
	var loginMiddlewares []func(http.Handler) http.Handler
	if h.loginRate != nil {
		loginMiddlewares = append(loginMiddlewares, h.loginRate)
	}

	routes := []Route{
		// --- ページ ---
		{Method: http.MethodGet, Path: "/", Auth: AuthPage, Handler: http.HandlerFunc(h.pages.Index)},
		{Method: http.MethodGet, Path: "/login", Auth: AuthOptional, Handler: http.HandlerFunc(h.auth.LoginPage)},
		{Method: http.MethodPost, Path: "/login", Auth: AuthNone, Handler: http.HandlerFunc(h.auth.Login), Middlewares: loginMiddlewares},
		{Method: http.MethodGet, Path: "/logout", Auth: AuthPage, Handler: http.HandlerFunc(h.auth.Logout)},
		{Method: http.MethodGet, Path: "/dashboard", Auth: AuthPage, Handler: http.HandlerFunc(h.pages.Dashboard)},

		// --- 運用 ---
		{Method: http.MethodGet, Path: "/health", Auth: AuthNone, Handler: http.HandlerFunc(h.health.Health)},
	}
	if h.metrics != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/metrics", Auth: AuthNone, Handler: h.metrics})
	}
	if h.media != nil {
		routes = append(routes, Route{Method: http.MethodGet, Path: "/pictures/*", Auth: AuthNone, Handler: h.media})
	}

	routes = append(routes, []Route{
		{Method: http.MethodGet, Path: "/api/v1", Auth: AuthNone, Handler: h.apiIndex},

		// ユーザー
		{Method: http.MethodGet, Path: "/api/v1/users", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.List)},
		{Method: http.MethodPost, Path: "/api/v1/users", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.Create)},
		{Method: http.MethodGet, Path: "/api/v1/me", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.Me)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.Get)},
		{Method: http.MethodPut, Path: "/api/v1/users/{userId}", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.Update)},
		{Method: http.MethodDelete, Path: "/api/v1/users/{userId}", Auth: AuthAPI, Handler: http.HandlerFunc(h.users.Delete)},

		// 質問
		{Method: http.MethodPost, Path: "/api/v1/questions/{questionId}", Auth: AuthAPI, Handler: http.HandlerFunc(h.questions.Answer)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/questions", Auth: AuthAPI, Handler: http.HandlerFunc(h.questions.List)},
		{Method: http.MethodPost, Path: "/api/v1/questions", Auth: AuthAPI, Handler: http.HandlerFunc(h.questions.Create)},

		// 感情
		{Method: http.MethodPost, Path: "/api/v1/emotions", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.CreateEmotion)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/emotions", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.ListEmotions)},

		// 画像
		{Method: http.MethodGet, Path: "/api/v1/pictures", Auth: AuthAPI, Handler: http.HandlerFunc(h.pictures.List)},
		{Method: http.MethodPost, Path: "/api/v1/pictures", Auth: AuthAPI, Handler: http.HandlerFunc(h.pictures.Create)},

		// アレルギー
		{Method: http.MethodPost, Path: "/api/v1/allergies", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.CreateAllergy)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/allergies", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.ListAllergies)},
		{Method: http.MethodDelete, Path: "/api/v1/users/{userId}/allergies/{allergyId}", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.DeleteAllergy)},

		// 連絡先
		{Method: http.MethodPost, Path: "/api/v1/contacts", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.CreateContact)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/contacts", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.ListContacts)},

		// 予定
		{Method: http.MethodPost, Path: "/api/v1/events", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.CreateEvent)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/events", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.ListEvents)},

		// 位置情報
		{Method: http.MethodPost, Path: "/api/v1/positions", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.CreatePosition)},
		{Method: http.MethodGet, Path: "/api/v1/users/{userId}/positions", Auth: AuthAPI, Handler: http.HandlerFunc(h.records.ListPositions)},
	}...)

	return routes
}

// routeInfo は/api/v1が返すルート一覧の要素。
type routeInfo struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// apiIndexHandler はマニフェストからルート一覧を返す。
// routesはマニフェスト構築後に設定する。
type apiIndexHandler struct {
	routes []Route
}

// ServeHTTP はマニフェストの全ルートを宣言順に返す。
// GET /api/v1
func (h *apiIndexHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	infos := make([]routeInfo, len(h.routes))
	for i, rt := range h.routes {
		infos[i] = routeInfo{Path: rt.Path, Method: rt.Method}
	}
	writeJSON(w, http.StatusOK, infos)
}
