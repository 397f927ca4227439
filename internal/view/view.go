// Package view はSPAシェル、ログインページ、ダッシュボードのHTMLを描画する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

// ページ名。templates/配下のファイル名から拡張子を除いたもの。
const (
	PageIndex     = "index"
	PageLogin     = "login"
	PageDashboard = "dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData はテンプレートに渡す値。
type PageData struct {
	Title    string
	User     *UserSummary
	LoginErr bool   // 直前のログインが失敗した場合true
	APIBase  string // SPAが呼び出すAPIのベースパス
}

// UserSummary は画面に表示するユーザー情報。
type UserSummary struct {
	ID       string
	Username string
	Name     string
	Role     string
}

// Renderer はページごとにlayoutと結合済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageIndex, PageLogin, PageDashboard} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render は指定ページを描画する。描画失敗時は何も書き込まずにエラーを返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data PageData) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page: %s", name)
	}
	if data.APIBase == "" {
		data.APIBase = "/api/v1"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
