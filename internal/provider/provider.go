// Package provider はアクターのロールに応じたリポジトリの振り分けを提供する。
//
// デモテスターはテナント隔離されたデモリポジトリだけを参照し、
// それ以外のアクターはホスト側リポジトリを参照する。
// 振り分けは純粋なルーティングであり、データ自体には触れない。
package provider

import (
	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/repository"
)

// Repositories はテナントデータ3種のリポジトリの組。
type Repositories struct {
	Events    repository.EventRepository
	Calendars repository.CalendarRepository
	Services  repository.ServiceRepository
}

// RepositoryProvider はアクターごとに参照先リポジトリを解決する。
// hostが未設定（ゼロ値）の場合はデモリポジトリへフォールバックし、
// ルーティング不能でリクエストが落ちることはない。
type RepositoryProvider struct {
	demo Repositories
	host Repositories
}

// New はRepositoryProviderを生成する。
// hostにはゼロ値を渡してよく、その場合は全アクターがデモリポジトリを参照する。
func New(demo, host Repositories) *RepositoryProvider {
	return &RepositoryProvider{demo: demo, host: host}
}

// EventsFor はアクターが参照すべきEventRepositoryを返す。
func (p *RepositoryProvider) EventsFor(actor *model.Principal) repository.EventRepository {
	if p.isDemoActor(actor) || p.host.Events == nil {
		return p.demo.Events
	}
	return p.host.Events
}

// CalendarsFor はアクターが参照すべきCalendarRepositoryを返す。
func (p *RepositoryProvider) CalendarsFor(actor *model.Principal) repository.CalendarRepository {
	if p.isDemoActor(actor) || p.host.Calendars == nil {
		return p.demo.Calendars
	}
	return p.host.Calendars
}

// ServicesFor はアクターが参照すべきServiceRepositoryを返す。
func (p *RepositoryProvider) ServicesFor(actor *model.Principal) repository.ServiceRepository {
	if p.isDemoActor(actor) || p.host.Services == nil {
		return p.demo.Services
	}
	return p.host.Services
}

// isDemoActor はアクターがデモリポジトリを参照すべきかを返す。
// アクター不明（nil）はデモ側に倒す。認証済みハンドラからしか呼ばれないため
// 実際にはnilは来ないが、誤配線でホストデータが見えるよりは安全側に落とす。
func (p *RepositoryProvider) isDemoActor(actor *model.Principal) bool {
	if actor == nil {
		return true
	}
	return actor.Role == model.RoleDemoTester
}
