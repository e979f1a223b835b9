package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// closingTag は終了タグ（</p> など）に一致する。
// 終了タグを含む本文のみをマークアップとみなす。
var closingTag = regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9-]*\s*>`)

// TextSanitizer は外部APIから受け取った本文をプレーンテキストに変換する。
// "a<b and c>d" や "<3" のような地の文の不等号はそのまま残す。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は本文にマークアップが含まれる場合のみタグを除去し、
// bluemondayがエスケープした実体参照を元の文字に戻して前後の空白を取り除く。
// マークアップを含まない本文は変更せずに返す。
func (s *TextSanitizer) Sanitize(raw string) string {
	if !closingTag.MatchString(raw) {
		return raw
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
