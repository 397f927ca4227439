// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/healthpass/healthpass/internal/auth"
	"github.com/healthpass/healthpass/internal/model"
)

// loginPath は未認証のページリクエストのリダイレクト先。
const loginPath = "/login"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey    = contextKey("user_id")
	userContextKey      = contextKey("user")
	sessionIDContextKey = contextKey("session_id")
)

// SessionMode は未認証リクエストの扱いを表す。
type SessionMode int

const (
	// ModeAPI は401 JSONを返す。
	ModeAPI SessionMode = iota
	// ModePage は/loginへリダイレクトする。
	ModePage
	// ModeOptional は拒否せず、認証済みの場合のみユーザーを注入する。
	ModeOptional
)

// UserResolver はセッションIDからユーザーを解決するインターフェース。
// auth.Serviceが実装する。
type UserResolver interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// CookieVerifier は署名付きCookie値を検証するインターフェース。
type CookieVerifier interface {
	Verify(value string) (string, bool)
}

// NewSessionMiddleware は署名付きHTTP Only Cookieからセッションを読み取り、
// ユーザーを解決するミドルウェアを返す。
// 認証済みユーザーとユーザーIDをリクエストコンテキストに注入する。
// セッションストアの障害はModeOptional以外では500とし、未認証扱いにはしない。
func NewSessionMiddleware(resolver UserResolver, verifier CookieVerifier, mode SessionMode) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, sessionID, err := resolveUser(r, resolver, verifier)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				switch mode {
				case ModeAPI:
					WriteInternalServerError(w)
					return
				case ModePage:
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
			}
			if user == nil {
				switch mode {
				case ModeAPI:
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
					return
				case ModePage:
					http.Redirect(w, r, loginPath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithUser(r.Context(), user)
			ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUser はCookieのセッションからユーザーを解決する。
// Cookieがない、署名が不正、セッションが無効の場合はエラーなしでnilを返す。
func resolveUser(r *http.Request, resolver UserResolver, verifier CookieVerifier) (*model.User, string, error) {
	// 1. CookieからセッションIDを取得し、署名を検証
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, "", nil
	}
	sessionID, ok := verifier.Verify(cookie.Value)
	if !ok {
		return nil, "", nil
	}

	// 2. セッションからユーザーを解決
	user, err := resolver.GetCurrentUser(r.Context(), sessionID)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", nil
	}
	return user, sessionID, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userContextKey).(*model.User)
	return u, ok && u != nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithUser はコンテキストにユーザーとユーザーIDを注入する。
// リクエストログにもユーザーIDを伝える。
func ContextWithUser(ctx context.Context, u *model.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey, u)
	ctx = context.WithValue(ctx, userIDContextKey, u.ID)
	if st, ok := ctx.Value(requestStateContextKey).(*requestState); ok {
		st.userID = u.ID
	}
	return ctx
}

// ContextWithUserID はコンテキストにユーザーIDのみを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
