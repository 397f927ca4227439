package passport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/access"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// QuestionInput は質問作成の入力。
type QuestionInput struct {
	UserID    string
	PictureID *string
	Title     string
}

// ListQuestions はユーザーの質問一覧を返す。
func (s *Service) ListQuestions(ctx context.Context, actor *model.User, userID string) ([]*model.Question, error) {
	if err := s.authorizeRead(ctx, actor, userID); err != nil {
		return nil, err
	}

	questions, err := s.repos.Questions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// CreateQuestion はユーザーに提示する質問を作成する。
// 画像IDが指定された場合は存在を確認する。
func (s *Service) CreateQuestion(ctx context.Context, actor *model.User, in QuestionInput) (*model.Question, error) {
	userID := resolveOwner(actor, in.UserID)
	if err := s.authorizeWrite(ctx, actor, userID); err != nil {
		return nil, err
	}

	title := s.sanitizer.Clean(in.Title)
	if title == "" {
		return nil, model.NewValidationError("title is required.")
	}

	q := &model.Question{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: s.now(),
	}

	if in.PictureID != nil && *in.PictureID != "" {
		pic, err := s.repos.Pictures.FindByID(ctx, *in.PictureID)
		if err != nil {
			return nil, fmt.Errorf("failed to find picture: %w", err)
		}
		if pic == nil {
			return nil, model.NewPictureNotFoundError(*in.PictureID)
		}
		q.PictureID = &pic.ID
		q.Picture = pic
	}

	if err := s.repos.Questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

// AnswerQuestion は質問に回答を記録する。既存の回答は上書きする。
func (s *Service) AnswerQuestion(ctx context.Context, actor *model.User, questionID, answer string) (*model.Question, error) {
	q, err := s.repos.Questions.FindByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	if q == nil {
		return nil, model.NewQuestionNotFoundError(questionID)
	}
	if !access.CanWrite(actor, q.UserID) {
		return nil, model.NewForbiddenError()
	}

	cleaned := s.sanitizer.Clean(answer)
	if cleaned == "" {
		return nil, model.NewValidationError("answer is required.")
	}

	now := s.now()
	q.Answer = &cleaned
	q.AnsweredAt = &now

	if err := s.repos.Questions.UpdateAnswer(ctx, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewQuestionNotFoundError(questionID)
		}
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	slog.Info("question answered",
		slog.String("question_id", q.ID),
		slog.String("user_id", q.UserID),
		slog.String("answered_by", actor.ID),
	)
	return q, nil
}
