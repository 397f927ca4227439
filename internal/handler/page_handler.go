package handler

import (
	"net/http"

	"github.com/healthpass/healthpass/internal/middleware"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/view"
)

// PageHandler はSPAシェルとダッシュボードのHTTPハンドラー。
// いずれもページ認証（未ログイン時は/loginへリダイレクト）の後に配置する。
type PageHandler struct {
	renderer PageRenderer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer PageRenderer) *PageHandler {
	return &PageHandler{renderer: renderer}
}

// Index はSPAシェルを表示する。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	renderPage(w, h.renderer, http.StatusOK, view.PageIndex, view.PageData{
		Title: "HealthPass",
		User:  userSummary(r),
	})
}

// Dashboard はダッシュボードを表示する。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	renderPage(w, h.renderer, http.StatusOK, view.PageDashboard, view.PageData{
		Title: "Dashboard",
		User:  userSummary(r),
	})
}

func userSummary(r *http.Request) *view.UserSummary {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil
	}
	return summarize(u)
}

func summarize(u *model.User) *view.UserSummary {
	return &view.UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     string(u.Role),
	}
}
