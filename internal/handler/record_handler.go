package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/passport"
	"github.com/healthpass/healthpass/internal/schema"
)

// ContactServiceInterface は連絡先の操作。
type ContactServiceInterface interface {
	ListContacts(ctx context.Context, actor *model.User, userID string) ([]*model.Contact, error)
	CreateContact(ctx context.Context, actor *model.User, in passport.ContactInput) (*model.Contact, error)
}

// EmotionServiceInterface は感情記録の操作。
type EmotionServiceInterface interface {
	ListEmotions(ctx context.Context, actor *model.User, userID string) ([]*model.Emotion, error)
	CreateEmotion(ctx context.Context, actor *model.User, in passport.EmotionInput) (*model.Emotion, error)
}

// AllergyServiceInterface はアレルギー情報の操作。
type AllergyServiceInterface interface {
	ListAllergies(ctx context.Context, actor *model.User, userID string) ([]*model.Allergy, error)
	CreateAllergy(ctx context.Context, actor *model.User, in passport.AllergyInput) (*model.Allergy, error)
	DeleteAllergy(ctx context.Context, actor *model.User, userID, allergyID string) error
}

// EventServiceInterface は予定の操作。
type EventServiceInterface interface {
	ListEvents(ctx context.Context, actor *model.User, userID string) ([]*model.Event, error)
	CreateEvent(ctx context.Context, actor *model.User, in passport.EventInput) (*model.Event, error)
}

// PositionServiceInterface は位置情報の操作。
type PositionServiceInterface interface {
	ListPositions(ctx context.Context, actor *model.User, userID string) ([]*model.Position, error)
	CreatePosition(ctx context.Context, actor *model.User, in passport.PositionInput) (*model.Position, error)
}

// RecordServices はユーザー記録系ハンドラーの依存関係。
// 通常はすべて同じ*passport.Serviceを指す。
type RecordServices struct {
	Contacts  ContactServiceInterface
	Emotions  EmotionServiceInterface
	Allergies AllergyServiceInterface
	Events    EventServiceInterface
	Positions PositionServiceInterface
}

// RecordHandler は連絡先、感情、アレルギー、予定、位置情報のHTTPハンドラー。
type RecordHandler struct {
	services RecordServices
	decoder  BodyDecoder
}

// NewRecordHandler はRecordHandlerを生成する。
func NewRecordHandler(services RecordServices, decoder BodyDecoder) *RecordHandler {
	return &RecordHandler{
		services: services,
		decoder:  decoder,
	}
}

type createContactRequest struct {
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Surname     string            `json:"surname"`
	Telephone   string            `json:"telephone"`
	Description string            `json:"description"`
	Picture     *string           `json:"picture"`
	Nickname    string            `json:"nickname"`
	Kind        model.ContactKind `json:"kind"`
}

type createEmotionRequest struct {
	UserID     string     `json:"user_id"`
	Kind       string     `json:"kind"`
	Intensity  int        `json:"intensity"`
	Note       string     `json:"note"`
	RecordedAt *time.Time `json:"recorded_at"`
}

type createAllergyRequest struct {
	UserID   string                `json:"user_id"`
	Name     string                `json:"name"`
	Severity model.AllergySeverity `json:"severity"`
	Reaction string                `json:"reaction"`
	Notes    string                `json:"notes"`
}

type createEventRequest struct {
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type createPositionRequest struct {
	UserID     string     `json:"user_id"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Accuracy   *float64   `json:"accuracy"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// --- 連絡先 ---

// ListContacts は連絡先一覧を返す。
// GET /api/v1/users/{userId}/contacts
func (h *RecordHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	contacts, err := h.services.Contacts.ListContacts(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(contacts, toContactResponse))
}

// CreateContact は連絡先を作成する。
// POST /api/v1/contacts
func (h *RecordHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req createContactRequest
	if !decodeBody(w, r, h.decoder, schema.ContactCreate, &req) {
		return
	}
	c, err := h.services.Contacts.CreateContact(r.Context(), actor, passport.ContactInput{
		UserID:      req.UserID,
		Name:        req.Name,
		Surname:     req.Surname,
		Telephone:   req.Telephone,
		Description: req.Description,
		Picture:     req.Picture,
		Nickname:    req.Nickname,
		Kind:        req.Kind,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(c))
}

// --- 感情 ---

// ListEmotions は感情記録の一覧を返す。
// GET /api/v1/users/{userId}/emotions
func (h *RecordHandler) ListEmotions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	emotions, err := h.services.Emotions.ListEmotions(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(emotions, toEmotionResponse))
}

// CreateEmotion は感情を記録する。
// POST /api/v1/emotions
func (h *RecordHandler) CreateEmotion(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req createEmotionRequest
	if !decodeBody(w, r, h.decoder, schema.EmotionCreate, &req) {
		return
	}
	e, err := h.services.Emotions.CreateEmotion(r.Context(), actor, passport.EmotionInput{
		UserID:     req.UserID,
		Kind:       req.Kind,
		Intensity:  req.Intensity,
		Note:       req.Note,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmotionResponse(e))
}

// --- アレルギー ---

// ListAllergies はアレルギー情報の一覧を返す。
// GET /api/v1/users/{userId}/allergies
func (h *RecordHandler) ListAllergies(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	allergies, err := h.services.Allergies.ListAllergies(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(allergies, toAllergyResponse))
}

// CreateAllergy はアレルギー情報を登録する。
// POST /api/v1/allergies
func (h *RecordHandler) CreateAllergy(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req createAllergyRequest
	if !decodeBody(w, r, h.decoder, schema.AllergyCreate, &req) {
		return
	}
	a, err := h.services.Allergies.CreateAllergy(r.Context(), actor, passport.AllergyInput{
		UserID:   req.UserID,
		Name:     req.Name,
		Severity: req.Severity,
		Reaction: req.Reaction,
		Notes:    req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllergyResponse(a))
}

// DeleteAllergy はアレルギー情報を削除する。存在しない場合は404。
// DELETE /api/v1/users/{userId}/allergies/{allergyId}
func (h *RecordHandler) DeleteAllergy(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	err := h.services.Allergies.DeleteAllergy(r.Context(), actor,
		chi.URLParam(r, "userId"), chi.URLParam(r, "allergyId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 予定 ---

// ListEvents は予定一覧を返す。
// GET /api/v1/users/{userId}/events
func (h *RecordHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	events, err := h.services.Events.ListEvents(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, toEventResponse))
}

// CreateEvent は予定を作成する。
// POST /api/v1/events
func (h *RecordHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req createEventRequest
	if !decodeBody(w, r, h.decoder, schema.EventCreate, &req) {
		return
	}
	e, err := h.services.Events.CreateEvent(r.Context(), actor, passport.EventInput{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// --- 位置情報 ---

// ListPositions は位置情報の一覧を返す。
// GET /api/v1/users/{userId}/positions
func (h *RecordHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	positions, err := h.services.Positions.ListPositions(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(positions, toPositionResponse))
}

// CreatePosition は位置情報を記録する。
// POST /api/v1/positions
func (h *RecordHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var req createPositionRequest
	if !decodeBody(w, r, h.decoder, schema.PositionCreate, &req) {
		return
	}
	p, err := h.services.Positions.CreatePosition(r.Context(), actor, passport.PositionInput{
		UserID:     req.UserID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPositionResponse(p))
}
