// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/permission"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにプリンシパルを格納するためのキー。
var principalContextKey = contextKey("principal")

// permissionsContextKey はリクエストコンテキストに権限集合を格納するためのキー。
var permissionsContextKey = contextKey("permissions")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// PrincipalFinder はプリンシパルの検索に必要なインターフェース。
// repository.PrincipalRepositoryの部分集合として定義する。
type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (*model.Principal, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みプリンシパルとそのロールに応じた権限集合をリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder, principalFinder PrincipalFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 2. セッションの有効性を検証
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. プリンシパルを解決。期限切れスイープで削除済みの場合も401になる
			principal, err := principalFinder.FindByID(r.Context(), session.PrincipalID)
			if err != nil {
				slog.Error("failed to find principal",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if principal == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 4. プリンシパルと権限集合をコンテキストに注入
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストからプリンシパルを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// PermissionsFromContext はリクエストコンテキストから権限集合を取得する。
// コンテキストに権限がない場合は何も許可しない空集合を返す。
func PermissionsFromContext(ctx context.Context) permission.Set {
	perms, ok := ctx.Value(permissionsContextKey).(permission.Set)
	if !ok {
		return permission.NewSet()
	}
	return perms
}

// ContextWithPrincipal はコンテキストにプリンシパルと権限集合を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	ctx = context.WithValue(ctx, principalContextKey, principal)
	return context.WithValue(ctx, permissionsContextKey, permission.ForRole(principal.Role))
}
