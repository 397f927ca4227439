// Package auth はパスワード認証、セッション発行、ログイン試行制限を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// ログイン結果の種別。メトリクスのラベルに使う。
const (
	LoginOutcomeSuccess = "success"
	LoginOutcomeFailure = "failure"
	LoginOutcomeLocked  = "locked"
)

// dummyPassword は存在しないユーザー名でも照合時間を揃えるための固定値。
const dummyPassword = "healthpass-timing-equalizer"

type clientIPKey struct{}

// WithClientIP はログイン要求元のIPをコンテキストに設定する。
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// LoginRecorder はログイン結果を記録する。
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	throttle    *LoginThrottle
	recorder    LoginRecorder
	config      ServiceConfig

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。throttleとrecorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	throttle *LoginThrottle,
	recorder LoginRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		throttle:    throttle,
		recorder:    recorder,
		config:      config,
	}
}

// Login はユーザー名とパスワードを検証し、成功時にセッションを発行する。
// ユーザー名が存在しない場合もパスワード不一致と同じエラーを返し、セッションは作らない。
// ロック中のユーザー名とクライアントIPの組はパスワードを照合せずに拒否する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	username = strings.TrimSpace(username)
	throttleKey := ThrottleKey(username, clientIPFrom(ctx))

	if s.throttle != nil {
		if locked, _ := s.throttle.Locked(throttleKey); locked {
			s.record(LoginOutcomeLocked)
			slog.Warn("login rejected: account locked", slog.String("username", username))
			return nil, nil, model.NewTooManyAttemptsError()
		}
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		if _, err := s.hasher.Compare(s.timingHash(), password); err != nil {
			slog.Error("dummy password comparison failed", slog.String("error", err.Error()))
		}
		s.fail(username, throttleKey)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.fail(username, throttleKey)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if s.throttle != nil {
		s.throttle.Reset(throttleKey)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(LoginOutcomeSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効、またはユーザーが削除済みの場合はnilを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *Service) fail(username, throttleKey string) {
	if s.throttle != nil {
		s.throttle.RecordFailure(throttleKey)
	}
	s.record(LoginOutcomeFailure)
	slog.Info("login failed", slog.String("username", username))
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLogin(outcome)
	}
}

// timingHash は照合時間を揃えるためのダミーハッシュを返す。初回呼び出し時に生成する。
func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
