package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/schema"
	"github.com/healthpass/healthpass/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, actor *model.User) ([]*model.User, error)
	Get(ctx context.Context, actor *model.User, id string) (*model.User, error)
	Create(ctx context.Context, actor *model.User, in user.CreateInput) (*model.User, error)
	Update(ctx context.Context, actor *model.User, id string, in user.UpdateInput) (*model.User, error)
	// Delete はユーザーと関連レコード、全セッションを削除する。
	Delete(ctx context.Context, actor *model.User, id string) error
}

// BodyDecoder はリクエストボディをJSON Schemaで検証してデコードする。
type BodyDecoder interface {
	Decode(name string, body []byte, dst any) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	decoder BodyDecoder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, decoder BodyDecoder) *UserHandler {
	return &UserHandler{
		service: service,
		decoder: decoder,
	}
}

type patientRequest struct {
	DisabilityLevel    *int `json:"disability_level"`
	UnderstandingLevel *int `json:"understanding_level"`
	CommunicationType  *int `json:"communication_type"`
	SupportHours       *int `json:"support_hours"`
}

func (p *patientRequest) toInput() *user.PatientInput {
	if p == nil {
		return nil
	}
	return &user.PatientInput{
		DisabilityLevel:    p.DisabilityLevel,
		UnderstandingLevel: p.UnderstandingLevel,
		CommunicationType:  p.CommunicationType,
		SupportHours:       p.SupportHours,
	}
}

// createUserRequest はユーザー作成リクエストのボディ。
type createUserRequest struct {
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	Name      string          `json:"name"`
	Surname   string          `json:"surname"`
	Email     string          `json:"email"`
	Role      model.Role      `json:"role"`
	Telephone string          `json:"telephone"`
	Patient   *patientRequest `json:"patient"`
}

// updateUserRequest はユーザー部分更新リクエストのボディ。省略されたフィールドは変更しない。
type updateUserRequest struct {
	Password  *string         `json:"password"`
	Name      *string         `json:"name"`
	Surname   *string         `json:"surname"`
	Email     *string         `json:"email"`
	Role      *model.Role     `json:"role"`
	Telephone *string         `json:"telephone"`
	Patient   *patientRequest `json:"patient"`
}

// List はユーザー一覧を返す。
// GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	users, err := h.service.List(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUserResponse))
}

// Create はユーザーを作成する。
// POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if !decodeBody(w, r, h.decoder, schema.UserCreate, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), actor, user.CreateInput{
		Username:  req.Username,
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		Email:     req.Email,
		Role:      req.Role,
		Telephone: req.Telephone,
		Patient:   req.Patient.toInput(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(created))
}

// Me はログイン中のユーザー情報を返す。
// GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(actor))
}

// Get はユーザーを取得する。
// GET /api/v1/users/{userId}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Update はユーザーを部分更新する。
// PUT /api/v1/users/{userId}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !decodeBody(w, r, h.decoder, schema.UserUpdate, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "userId"), user.UpdateInput{
		Password:  req.Password,
		Name:      req.Name,
		Surname:   req.Surname,
		Email:     req.Email,
		Role:      req.Role,
		Telephone: req.Telephone,
		Patient:   req.Patient.toInput(),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// Delete はユーザーを削除する。
// DELETE /api/v1/users/{userId}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "userId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody はボディを読み込み、スキーマ検証してdstへデコードする。
// 失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeBody(w http.ResponseWriter, r *http.Request, decoder BodyDecoder, name string, dst any) bool {
	body, err := readBody(w, r)
	if err != nil {
		handleServiceError(w, err)
		return false
	}
	if err := decoder.Decode(name, body, dst); err != nil {
		handleServiceError(w, err)
		return false
	}
	return true
}
