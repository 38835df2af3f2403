package model

import "time"

// PageStatus はデモページの公開状態を表す。
type PageStatus string

const (
	// PageStatusDraft は下書き状態を示す。
	PageStatusDraft PageStatus = "draft"
	// PageStatusPublished は公開状態を示す。
	PageStatusPublished PageStatus = "published"
)

// IsValid は公開状態が定義済みの値かを返す。
func (s PageStatus) IsValid() bool {
	return s == PageStatusDraft || s == PageStatusPublished
}

// Page はデモテスターが作成する自作ページを表す。
// ContentHTMLはサニタイズ済みのHTMLのみを保持する。
// テナントのPrincipal削除時にCASCADEで削除される。
type Page struct {
	ID          string
	TenantID    string
	Title       string
	ContentHTML string
	Status      PageStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
