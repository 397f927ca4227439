// Package security は入力の無害化と外部URL取得の安全対策を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は自由記述フィールドからマークアップを取り除き、プレーンテキストにする。
type TextSanitizer interface {
	Clean(s string) string
}

type strictSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
// 全タグを除去し、エスケープされた実体参照は元の文字に戻す。
func NewTextSanitizer() TextSanitizer {
	return &strictSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はタグを除去し、前後の空白を取り除いた文字列を返す。
func (s *strictSanitizer) Clean(in string) string {
	if in == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}
