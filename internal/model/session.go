package model

import "time"

// Session はプリンシパルのログインセッションを表す。
type Session struct {
	ID          string
	PrincipalID string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
