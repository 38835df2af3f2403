// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はデモテスターが入力するHTMLおよびフリーテキストを
// サニタイズし、XSS攻撃などのセキュリティリスクから保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// デモページの保存前および申込フォームの受付時に使用される。
type ContentSanitizerService interface {
	// SanitizeHTML はデモページ本文のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（見出し・段落・リスト・リンク・強調・画像など）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeHTML(rawHTML string) string

	// SanitizeText は申込フォームのフリーテキスト（氏名・団体名・利用目的）から
	// すべてのHTMLタグを除去してプレーンテキストを返す。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// HTMLポリシーの内容:
//   - 許可タグ: h1〜h4, p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img, table系
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - imgのsrc属性: httpsスキームのみ許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//
// テキストポリシーは全タグを除去するStrictPolicy。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// デモページで許可するタグ
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements(
		"h1", "h2", "h3", "h4",
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	// aタグの設定:
	// - href属性を許可
	// - 相対URLは不許可（デモページは外部リンクのみ想定）
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// imgタグの設定:
	// - src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）
	// - alt属性を許可（アクセシビリティ確保）
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		htmlPolicy: p,
		textPolicy: bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML はデモページ本文のHTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return s.htmlPolicy.Sanitize(rawHTML)
}

// SanitizeText はフリーテキストから全HTMLタグを除去してプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.textPolicy.Sanitize(raw)
}
