package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/healthpass/healthpass/internal/model"
	"github.com/healthpass/healthpass/internal/schema"
)

// multipartOverhead はマルチパートの境界やヘッダー分として画像サイズ上限に加算する余裕。
const multipartOverhead = 64 << 10

// PictureServiceInterface は画像ハンドラーが必要とするサービスインターフェース。
type PictureServiceInterface interface {
	List(ctx context.Context) ([]*model.Picture, error)
	// CreateFromURL はURLを参照する画像を登録する。mirrorがtrueの場合は複製して保存する。
	CreateFromURL(ctx context.Context, rawURL string, mirror bool) (*model.Picture, error)
	// Upload は画像データを保存して登録する。
	Upload(ctx context.Context, data []byte) (*model.Picture, error)
}

// PictureHandler は画像ライブラリのHTTPハンドラー。
type PictureHandler struct {
	service PictureServiceInterface
	decoder BodyDecoder
	maxSize int64
}

// NewPictureHandler はPictureHandlerを生成する。maxSizeはアップロード画像の上限（バイト）。
func NewPictureHandler(service PictureServiceInterface, decoder BodyDecoder, maxSize int64) *PictureHandler {
	return &PictureHandler{
		service: service,
		decoder: decoder,
		maxSize: maxSize,
	}
}

type createPictureRequest struct {
	URL    string `json:"url"`
	Mirror bool   `json:"mirror"`
}

// List は登録済み画像の一覧を返す。
// GET /api/v1/pictures
func (h *PictureHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(w, r); !ok {
		return
	}

	pictures, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(pictures, toPictureResponse))
}

// Create は画像を登録する。
// multipart/form-dataの場合はfileフィールドをアップロードし、
// それ以外はJSONの{url, mirror}として扱う。
// POST /api/v1/pictures
func (h *PictureHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(w, r); !ok {
		return
	}

	var (
		picture *model.Picture
		err     error
	)
	if isMultipartRequest(r) {
		var data []byte
		data, err = h.readUpload(w, r)
		if err == nil {
			picture, err = h.service.Upload(r.Context(), data)
		}
	} else {
		var req createPictureRequest
		if !decodeBody(w, r, h.decoder, schema.PictureCreate, &req) {
			return
		}
		picture, err = h.service.CreateFromURL(r.Context(), req.URL, req.Mirror)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPictureResponse(picture))
}

// readUpload はマルチパートのfileフィールドを上限付きで読み込む。
// 上限を1バイト超えて読み、サイズ検証はサービス層に任せる。
func (h *PictureHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxSize + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.NewValidationError("The picture is too large.")
		}
		return nil, model.NewValidationError("The upload could not be parsed.", "file: "+err.Error())
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, model.NewValidationError("file is required.")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		return nil, model.NewInvalidRequestError()
	}
	return data, nil
}

func isMultipartRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
