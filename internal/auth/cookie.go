package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SessionCookieName はセッションIDを運ぶCookie名。
const SessionCookieName = "healthpass_sid"

// CookieSigner はセッションIDにHMAC-SHA256署名を付与・検証する。
// Cookie値の形式は "<sessionID>.<base64url(署名)>"。
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner はCookieSignerを生成する。
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign はセッションIDに署名したCookie値を返す。
func (s *CookieSigner) Sign(sessionID string) string {
	return sessionID + "." + s.mac(sessionID)
}

// Verify はCookie値の署名を検証し、セッションIDを返す。
func (s *CookieSigner) Verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", false
	}
	id, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", false
	}
	return id, true
}

func (s *CookieSigner) mac(sessionID string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
