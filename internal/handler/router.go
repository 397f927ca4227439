package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/healthpass/healthpass/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger       *slog.Logger
	HTTPRecorder middleware.HTTPRecorder
	RateLimiter  *middleware.RateLimiter // nilの場合はレート制限なし
	TrustProxy   bool                    // trueの場合はchiのRealIPでRemoteAddrを書き換える

	// 認証
	AuthService AuthServiceInterface
	Signer      CookieSigner
	AuthConfig  AuthHandlerConfig

	// 画面
	Renderer PageRenderer

	// リソース
	Decoder         BodyDecoder
	UserService     UserServiceInterface
	QuestionService QuestionServiceInterface
	Records         RecordServices
	PictureService  PictureServiceInterface
	PictureMaxSize  int64

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	MediaHandler   http.Handler // ファイルシステム保存時の/pictures配信
}

// NewRouter はルートマニフェストとミドルウェアチェーンを構成したchi.Routerを返す。
//
// グローバルミドルウェアの実行順序:
//
//	[RealIP] → Recovery → Logging(+Metrics) → SecurityHeaders → CORS
//
// 各ルートにはAuthModeに応じてSessionMiddleware（API認証の場合はその後にGeneralレート制限）を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	routes := routesFor(deps)

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware())

	for _, rt := range routes {
		chain := append(authMiddlewares(deps, rt.Auth), rt.Middlewares...)
		r.With(chain...).Method(rt.Method, rt.Path, rt.Handler)
	}

	return r
}

// routesFor は依存関係からハンドラーを生成し、ルートマニフェストを構築する。
func routesFor(deps *RouterDeps) []Route {
	index := &apiIndexHandler{}
	h := routeHandlers{
		auth:      NewAuthHandler(deps.AuthService, deps.Signer, deps.Renderer, deps.AuthConfig),
		pages:     NewPageHandler(deps.Renderer),
		health:    NewHealthHandler(deps.HealthChecker),
		users:     NewUserHandler(deps.UserService, deps.Decoder),
		questions: NewQuestionHandler(deps.QuestionService, deps.Decoder),
		records:   NewRecordHandler(deps.Records, deps.Decoder),
		pictures:  NewPictureHandler(deps.PictureService, deps.Decoder, deps.PictureMaxSize),
		apiIndex:  index,
		metrics:   deps.MetricsHandler,
		media:     deps.MediaHandler,
	}
	if deps.RateLimiter != nil {
		h.loginRate = deps.RateLimiter.LoginMiddleware()
	}

	routes := buildRoutes(h)
	index.routes = routes
	return routes
}

// authMiddlewares はAuthModeに対応するミドルウェアを返す。
func authMiddlewares(deps *RouterDeps, mode AuthMode) []func(http.Handler) http.Handler {
	switch mode {
	case AuthOptional:
		return []func(http.Handler) http.Handler{
			middleware.NewSessionMiddleware(deps.AuthService, deps.Signer, middleware.ModeOptional),
		}
	case AuthPage:
		return []func(http.Handler) http.Handler{
			middleware.NewSessionMiddleware(deps.AuthService, deps.Signer, middleware.ModePage),
		}
	case AuthAPI:
		mws := []func(http.Handler) http.Handler{
			middleware.NewSessionMiddleware(deps.AuthService, deps.Signer, middleware.ModeAPI),
		}
		if deps.RateLimiter != nil {
			mws = append(mws, deps.RateLimiter.GeneralMiddleware())
		}
		return mws
	default:
		return nil
	}
}
