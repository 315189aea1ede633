package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizer はチャットに送信するHTMLメッセージをサニタイズする。
// 上流から受け取った文字列（タイトル、出品者名など）は信頼できないため、
// 埋め込む前にText でタグを除去・エスケープする。
type MessageSanitizer interface {
	// Text はすべてのタグを除去し、HTML特殊文字をエスケープする。
	Text(s string) string
	// Markup はチャットのHTMLパースモードで使えるタグ（b, i, code, a[href]）のみ残す。
	Markup(s string) string
}

type messageSanitizer struct {
	strict *bluemonday.Policy
	markup *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerの新しいインスタンスを生成する。
func NewMessageSanitizer() *messageSanitizer {
	m := bluemonday.NewPolicy()
	m.AllowElements("b", "i", "code")
	m.AllowAttrs("href").OnElements("a")
	m.AllowURLSchemes("https")
	m.AllowRelativeURLs(false)

	return &messageSanitizer{
		strict: bluemonday.StrictPolicy(),
		markup: m,
	}
}

func (s *messageSanitizer) Text(v string) string {
	return s.strict.Sanitize(v)
}

func (s *messageSanitizer) Markup(v string) string {
	return s.markup.Sanitize(v)
}
