// Package model はドメインモデルを定義する。
package model

import "time"

// DemoAccount はデモ環境の申込レコードを表す。
// メール確認が完了するまではPrincipalIDが空の未確認状態。
// 確認完了時にPrincipalが払い出され、VerifiedAtが刻印される。
// VerifiedAtが設定されているレコードは必ずPrincipalIDを持つ（検証トランザクションで保証）。
type DemoAccount struct {
	ID                string
	Email             string
	DisplayName       string
	Organization      string
	PurposeText       string
	VerificationToken string
	PasswordHash      string
	VerifiedAt        *time.Time
	PrincipalID       *string
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsVerified はメール確認が完了しているかを返す。
func (a *DemoAccount) IsVerified() bool {
	return a.VerifiedAt != nil
}

// Principal は払い出されたログインアイデンティティを表す。
// デモテナントのtenant_idはこのIDと一致する。
type Principal struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleDemoTester はデモテスター用のロール名。
// 歴史的な別名は持たない。
const RoleDemoTester = "demo_tester"

// RoleAdmin は運用者用のロール名。
// 申込時には払い出されず、運用側で直接作成する。
const RoleAdmin = "admin"
