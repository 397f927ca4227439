// Package media は画像ファイルの保存先を抽象化する。
package media

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnsupportedType は画像以外のデータが渡されたことを表す。
var ErrUnsupportedType = errors.New("unsupported media type")

// imageTypes は受け付ける画像のContent-Typeと拡張子。
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store は画像データを保存し、公開URLを返す。
type Store interface {
	// Put はnameで識別されるオブジェクトとしてdataを保存し、公開URLを返す。
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// DetectImage はデータの先頭からContent-Typeを判定し、対応する拡張子を返す。
// 画像でない場合はErrUnsupportedTypeを返す。
func DetectImage(data []byte) (contentType, ext string, err error) {
	contentType = http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}
