package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore はローカルディレクトリに画像を保存する。
// 保存した画像はHandlerで配信する。
type FilesystemStore struct {
	dir     string
	baseURL string
}

// NewFilesystemStore はFilesystemStoreを生成し、保存先ディレクトリを作成する。
func NewFilesystemStore(dir, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &FilesystemStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put はdataをdir/nameに書き込む。nameにパス区切りは使えない。
func (s *FilesystemStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid media name: %q", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	slog.Info("picture stored", slog.String("backend", "filesystem"), slog.String("name", name))
	return s.baseURL + "/" + name, nil
}

// Handler は保存済み画像を配信するハンドラを返す。prefixはマウント先のパス。
func (s *FilesystemStore) Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(s.dir)))
}

// compile-time interface check
var _ Store = (*FilesystemStore)(nil)
