package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/passport"
	"github.com/healthpass/healthpass/internal/schema"
)

// QuestionServiceInterface は質問ハンドラーが必要とするサービスインターフェース。
type QuestionServiceInterface interface {
	ListQuestions(ctx context.Context, actor *model.User, userID string) ([]*model.Question, error)
	CreateQuestion(ctx context.Context, actor *model.User, in passport.QuestionInput) (*model.Question, error)
	// AnswerQuestion は質問に回答を記録する。
	AnswerQuestion(ctx context.Context, actor *model.User, questionID, answer string) (*model.Question, error)
}

// QuestionHandler は質問と回答のHTTPハンドラー。
type QuestionHandler struct {
	service QuestionServiceInterface
	decoder BodyDecoder
}

// NewQuestionHandler はQuestionHandlerを生成する。
func NewQuestionHandler(service QuestionServiceInterface, decoder BodyDecoder) *QuestionHandler {
	return &QuestionHandler{
		service: service,
		decoder: decoder,
	}
}

type createQuestionRequest struct {
	UserID    string  `json:"user_id"`
	PictureID *string `json:"picture_id"`
	Title     string  `json:"title"`
}

type answerQuestionRequest struct {
	Answer string `json:"answer"`
}

// List はユーザーの質問一覧を返す。
// GET /api/v1/users/{userId}/questions
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	questions, err := h.service.ListQuestions(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(questions, toQuestionResponse))
}

// Create は質問を作成する。user_id省略時はログインユーザー宛て。
// POST /api/v1/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createQuestionRequest
	if !decodeBody(w, r, h.decoder, schema.QuestionCreate, &req) {
		return
	}

	q, err := h.service.CreateQuestion(r.Context(), actor, passport.QuestionInput{
		UserID:    req.UserID,
		PictureID: req.PictureID,
		Title:     req.Title,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionResponse(q))
}

// Answer は質問に回答する。
// POST /api/v1/questions/{questionId}
func (h *QuestionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req answerQuestionRequest
	if !decodeBody(w, r, h.decoder, schema.QuestionAnswer, &req) {
		return
	}

	q, err := h.service.AnswerQuestion(r.Context(), actor, chi.URLParam(r, "questionId"), req.Answer)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionResponse(q))
}
