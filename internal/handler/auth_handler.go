package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/healthpass/healthpass/internal/auth"
	"github.com/healthpass/healthpass/internal/middleware"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/view"
)

// loginFailedPath はフォームログイン失敗時のリダイレクト先。
const loginFailedPath = "/login?error=1"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はユーザー名とパスワードを検証し、セッションを発行する。
	Login(ctx context.Context, username, password string) (*model.Session, *model.User, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
	// GetCurrentUser はセッションIDから現在のユーザーを取得する。
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// CookieSigner はセッションCookie値の署名と検証を行う。
type CookieSigner interface {
	Sign(sessionID string) string
	Verify(value string) (string, bool)
}

// PageRenderer はHTMLページを描画する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, data view.PageData) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string // Cookieのドメイン
	CookieSecure  bool   // Secure属性（本番: true）
	SessionMaxAge int    // セッションの有効期間（秒）
}

// AuthHandler はログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	signer   CookieSigner
	renderer PageRenderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, signer CookieSigner, renderer PageRenderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		signer:   signer,
		renderer: renderer,
		config:   config,
	}
}

// loginRequest はJSONログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginPage はログインページを表示する。ログイン済みの場合はSPAへリダイレクトする。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	renderPage(w, h.renderer, http.StatusOK, view.PageLogin, view.PageData{
		Title:    "Log in",
		LoginErr: r.URL.Query().Get("error") != "",
	})
}

// Login は資格情報を検証してセッションCookieを発行する。
// フォーム送信はリダイレクト、JSON送信はJSONで応答する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSONRequest(r)

	var req loginRequest
	if asJSON {
		body, err := readBody(w, r)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, loginFailedPath, http.StatusSeeOther)
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		if asJSON {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("username and password are required."))
			return
		}
		http.Redirect(w, r, loginFailedPath, http.StatusSeeOther)
		return
	}

	ctx := auth.WithClientIP(r.Context(), middleware.ClientIP(r))
	session, user, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			slog.Error("login failed", slog.String("error", err.Error()))
		}
		if asJSON {
			handleServiceError(w, err)
			return
		}
		http.Redirect(w, r, loginFailedPath, http.StatusSeeOther)
		return
	}

	// セッションCookieを設定（HTTP Only、署名付き）
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    h.signer.Sign(session.ID),
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if asJSON {
		writeJSON(w, http.StatusOK, toUserResponse(user))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄してSPAへリダイレクトする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// isJSONRequest はリクエストボディがJSONかを返す。
func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// renderPage はページを描画し、失敗時はログを残して500を返す。
func renderPage(w http.ResponseWriter, renderer PageRenderer, status int, name string, data view.PageData) {
	if err := renderer.Render(w, status, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
