// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// カテゴリ: validation（入力不備）, conflict（状態競合）, auth（認証・認可）,
// demo（デモ環境操作）, system（内部エラー）。
// conflictカテゴリのエラーはUIが分岐できるよう機械可読なコードを必ず持つ。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, demo, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeConsentRequired     = "CONSENT_REQUIRED"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeVerificationPending = "VERIFICATION_PENDING"
	ErrCodeAlreadyRegistered   = "ALREADY_REGISTERED"
	ErrCodeAlreadyVerified     = "ALREADY_VERIFIED"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeLoginFailed         = "LOGIN_FAILED"
	ErrCodePrincipalNotFound   = "PRINCIPAL_NOT_FOUND"
	ErrCodePageNotFound        = "PAGE_NOT_FOUND"
	ErrCodeInvalidPageStatus   = "INVALID_PAGE_STATUS"
	ErrCodeInvalidPageTitle    = "INVALID_PAGE_TITLE"
	ErrCodePageLimitReached    = "PAGE_LIMIT_REACHED"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeInvalidInstanceURL  = "INVALID_INSTANCE_URL"
	ErrCodeInstanceUnreachable = "INSTANCE_UNREACHABLE"
	ErrCodeDemoModeLocked      = "DEMO_MODE_LOCKED"
)

// NewInvalidEmailError は不正なメールアドレスエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("メールアドレスの形式が正しくありません: %s", email),
		Category: "validation",
		Action:   "正しい形式のメールアドレスを入力してください。",
	}
}

// NewConsentRequiredError は同意チェック未入力エラーを生成する。
func NewConsentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeConsentRequired,
		Message:  "利用規約への同意が必要です。",
		Category: "validation",
		Action:   "利用規約に同意のうえ、再度お申し込みください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上で入力してください。",
		Category: "validation",
		Action:   "8文字以上のパスワードを設定してください。",
	}
}

// NewVerificationPendingError は未確認の申込が既に存在する場合のエラーを生成する。
// この場合、確認メールは再送済みであることをUIに伝える。
func NewVerificationPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeVerificationPending,
		Message:  "このメールアドレスは確認待ちの状態です。確認メールを再送しました。",
		Category: "conflict",
		Action:   "受信トレイ（迷惑メールフォルダを含む）の確認メールを開いてください。",
	}
}

// NewAlreadyRegisteredError は確認済みの申込が既に存在する場合のエラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "conflict",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewAlreadyVerifiedError は消費済みトークンで再検証を試みた場合のエラーを生成する。
// UIはこのコードを検出してログイン画面へリダイレクトする。
func NewAlreadyVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVerified,
		Message:  "このアカウントは既に確認済みです。",
		Category: "conflict",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewInvalidTokenError はどのレコードにも一致しないトークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "確認トークンが無効です。",
		Category: "auth",
		Action:   "確認メールのリンクを確認するか、再度お申し込みください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewPrincipalNotFoundError はプリンシパルが見つからない場合のエラーを生成する。
func NewPrincipalNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePrincipalNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPageNotFoundError はデモページが見つからない場合のエラーを生成する。
func NewPageNotFoundError(pageID string) *APIError {
	return &APIError{
		Code:     ErrCodePageNotFound,
		Message:  fmt.Sprintf("指定されたページが見つかりません: %s", pageID),
		Category: "demo",
		Action:   "ページIDを確認してください。",
	}
}

// NewInvalidPageStatusError は無効なページ公開状態のエラーを生成する。
func NewInvalidPageStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPageStatus,
		Message:  fmt.Sprintf("無効なページ状態です: %s", status),
		Category: "validation",
		Action:   "ページ状態には draft または published を指定してください。",
	}
}

// NewInvalidPageTitleError は不正なページタイトルのエラーを生成する。
func NewInvalidPageTitleError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPageTitle,
		Message:  fmt.Sprintf("ページタイトルが不正です: %s", reason),
		Category: "validation",
		Action:   "タイトルを確認のうえ、再度保存してください。",
	}
}

// NewPageLimitReachedError はページ数上限到達のエラーを生成する。
func NewPageLimitReachedError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodePageLimitReached,
		Message:  fmt.Sprintf("ページ数が上限（%d件）に達しています。", limit),
		Category: "validation",
		Action:   "不要なページを削除してから作成してください。",
	}
}

// NewPermissionDeniedError は権限不足エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "デモアカウントでは実行できない操作です。",
	}
}

// NewInvalidInstanceURLError は接続先URLが不正な場合のエラーを生成する。
func NewInvalidInstanceURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInstanceURL,
		Message:  fmt.Sprintf("接続先URLが無効です: %s", reason),
		Category: "validation",
		Action:   "https:// で始まる公開されたインスタンスのURLを入力してください。",
	}
}

// NewInstanceUnreachableError は接続先インスタンスへの疎通確認に失敗した場合のエラーを生成する。
func NewInstanceUnreachableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInstanceUnreachable,
		Message:  fmt.Sprintf("接続先インスタンスに到達できませんでした: %s", reason),
		Category: "demo",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewDemoModeLockedError はデモモード中に接続設定の変更を試みた場合のエラーを生成する。
func NewDemoModeLockedError() *APIError {
	return &APIError{
		Code:     ErrCodeDemoModeLocked,
		Message:  "デモモード中は接続設定を変更できません。",
		Category: "demo",
		Action:   "デモモードを無効にしてから接続設定を変更してください。",
	}
}
