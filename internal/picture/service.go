// Package picture は共有画像ライブラリのドメインロジックを提供する。
package picture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthpass/healthpass/internal/media"
	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/repository"
)

// userAgent はリモート画像取得時のUser-Agent。
const userAgent = "HealthPass/1.0 Picture Mirror"

// URLValidator は取得先URLの安全性を検証するインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Config はServiceの設定。
type Config struct {
	MaxSize int64 // 受け付ける画像の最大バイト数
}

// Service は画像の一覧・登録のサービス層。
type Service struct {
	pictureRepo repository.PictureRepository
	store       media.Store
	guard       URLValidator
	client      *http.Client
	maxSize     int64
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// clientはリモート画像の複製に使う。SSRF対策済みのクライアントを渡すこと。
func NewService(
	pictureRepo repository.PictureRepository,
	store media.Store,
	guard URLValidator,
	client *http.Client,
	cfg Config,
) *Service {
	return &Service{
		pictureRepo: pictureRepo,
		store:       store,
		guard:       guard,
		client:      client,
		maxSize:     cfg.MaxSize,
		now:         time.Now,
	}
}

// List は登録済み画像を返す。
func (s *Service) List(ctx context.Context) ([]*model.Picture, error) {
	pictures, err := s.pictureRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pictures: %w", err)
	}
	return pictures, nil
}

// CreateFromURL はURLを参照する画像を登録する。
// mirrorがtrueの場合はリモート画像を取得してメディアストアへ複製し、複製先URLを登録する。
func (s *Service) CreateFromURL(ctx context.Context, rawURL string, mirror bool) (*model.Picture, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, model.NewValidationError("url is required.")
	}
	if err := s.guard.ValidateURL(rawURL); err != nil {
		return nil, model.NewValidationError("The picture URL is not allowed.", fmt.Sprintf("url: %v", err))
	}

	if !mirror {
		return s.save(ctx, rawURL)
	}

	data, err := s.fetch(ctx, rawURL)
	if err != nil {
		slog.Warn("picture mirror failed", slog.String("url", rawURL), slog.String("error", err.Error()))
		return nil, model.NewValidationError("The picture could not be fetched.", fmt.Sprintf("url: %v", err))
	}
	return s.Upload(ctx, data)
}

// Upload は画像データをメディアストアへ保存して登録する。
func (s *Service) Upload(ctx context.Context, data []byte) (*model.Picture, error) {
	if len(data) == 0 {
		return nil, model.NewValidationError("file is empty.")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, model.NewValidationError("The picture is too large.",
			fmt.Sprintf("file: %d bytes exceeds %d", len(data), s.maxSize))
	}

	contentType, ext, err := media.DetectImage(data)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			return nil, model.NewValidationError("Only JPEG, PNG, GIF and WebP pictures are accepted.")
		}
		return nil, err
	}

	name := uuid.New().String() + ext
	url, err := s.store.Put(ctx, name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store picture: %w", err)
	}
	return s.save(ctx, url)
}

func (s *Service) save(ctx context.Context, url string) (*model.Picture, error) {
	p := &model.Picture{
		ID:        uuid.New().String(),
		URL:       url,
		CreatedAt: s.now(),
	}
	if err := s.pictureRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create picture: %w", err)
	}
	return p, nil
}

// fetch はリモート画像を最大サイズまで読み込む。
func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	limit := s.maxSize
	if limit <= 0 {
		limit = 5 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, nil
}
