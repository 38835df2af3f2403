// Package demodata はデモテナントへ投入するサンプルデータを生成する。
//
// 生成は基準日だけに依存する純粋関数であり、同じ基準日に対して常に
// 同じデータ列を返す。投入はUPSERTで行われるため、再投入しても
// 行が重複することはない。
package demodata

import (
	"fmt"
	"time"

	"github.com/hitoshi/demostand/internal/model"
)

// SeedHorizonDaysDefault は予定を生成する既定の先行日数。
const SeedHorizonDaysDefault = 90

// サンプルカレンダーのID。appointment/serviceのIDもこの接頭辞体系に従う。
const (
	calWorship   = "demo-cal-worship"
	calYouth     = "demo-cal-youth"
	calInternal  = "demo-cal-internal"
	apptSunday   = "demo-appt-sunday-service"
	apptPrayer   = "demo-appt-prayer-meeting"
	apptYouth    = "demo-appt-youth-night"
	apptBaptism  = "demo-appt-baptism"
	apptConcert  = "demo-appt-christmas-concert"
	svcPreaching = "demo-svc-preaching"
	svcMusic     = "demo-svc-music"
	svcWelcome   = "demo-svc-welcome"
	svcTech      = "demo-svc-tech"
)

// Seed は1テナント分のサンプルデータ一式を表す。
type Seed struct {
	Calendars []*model.Calendar
	Events    []*model.Event
	Services  []*model.Service
}

// Generate は基準日からhorizonDays先までのサンプルデータを生成する。
// tenantIDは全レコードに刻印される。horizonDaysが0以下の場合は既定値を使う。
func Generate(tenantID string, today time.Time, horizonDays int) *Seed {
	if horizonDays <= 0 {
		horizonDays = SeedHorizonDaysDefault
	}
	// 時刻成分を落として日単位で扱う
	base := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	horizon := base.AddDate(0, 0, horizonDays)

	seed := &Seed{
		Calendars: calendars(tenantID),
		Services:  services(tenantID),
	}

	seed.Events = append(seed.Events, weeklyEvents(tenantID, base, horizon)...)
	seed.Events = append(seed.Events, oneOffEvents(tenantID, base, horizon)...)

	return seed
}

func calendars(tenantID string) []*model.Calendar {
	return []*model.Calendar{
		{TenantID: tenantID, CalendarID: calWorship, Name: "礼拝", Color: "#4a90d9", IsPublic: true, SortOrder: 1},
		{TenantID: tenantID, CalendarID: calYouth, Name: "ユース", Color: "#7cb342", IsPublic: true, SortOrder: 2},
		{TenantID: tenantID, CalendarID: calInternal, Name: "スタッフ内部", Color: "#9e9e9e", IsPublic: false, SortOrder: 3},
	}
}

func services(tenantID string) []*model.Service {
	return []*model.Service{
		{TenantID: tenantID, ServiceID: svcPreaching, Name: "説教", ServiceGroup: "礼拝"},
		{TenantID: tenantID, ServiceID: svcMusic, Name: "賛美リード", ServiceGroup: "礼拝"},
		{TenantID: tenantID, ServiceID: svcWelcome, Name: "受付・案内", ServiceGroup: "奉仕"},
		{TenantID: tenantID, ServiceID: svcTech, Name: "音響・配信", ServiceGroup: "奉仕"},
	}
}

// weeklyEvents は毎週繰り返す予定を期間内のオカレンスごとに展開する。
func weeklyEvents(tenantID string, base, horizon time.Time) []*model.Event {
	type weekly struct {
		appointmentID string
		weekday       time.Weekday
		startHour     int
		durationHours int
		title         string
		calendarID    string
		location      string
	}

	series := []weekly{
		{apptSunday, time.Sunday, 10, 2, "主日礼拝", calWorship, "本堂"},
		{apptPrayer, time.Wednesday, 19, 1, "祈祷会", calWorship, "第1会議室"},
		{apptYouth, time.Friday, 18, 3, "ユースナイト", calYouth, "ユースルーム"},
	}

	var events []*model.Event
	for _, w := range series {
		// 基準日以降で最初に該当曜日が来る日を求める
		offset := (int(w.weekday) - int(base.Weekday()) + 7) % 7
		for d := base.AddDate(0, 0, offset); d.Before(horizon); d = d.AddDate(0, 0, 7) {
			start := d.Add(time.Duration(w.startHour) * time.Hour)
			events = append(events, &model.Event{
				TenantID:      tenantID,
				AppointmentID: w.appointmentID,
				StartAt:       start,
				EndAt:         start.Add(time.Duration(w.durationHours) * time.Hour),
				Title:         w.title,
				CalendarID:    w.calendarID,
				Location:      w.location,
			})
		}
	}
	return events
}

// oneOffEvents は単発の予定を生成する。基準日からの相対日で配置するため、
// どの基準日でも期間内に必ず収まる。
func oneOffEvents(tenantID string, base, horizon time.Time) []*model.Event {
	type oneOff struct {
		appointmentID string
		daysAhead     int
		startHour     int
		durationHours int
		title         string
		calendarID    string
		location      string
		note          string
	}

	items := []oneOff{
		{apptBaptism, 21, 14, 2, "洗礼式", calWorship, "本堂", "リハーサルは前日17時から"},
		{apptConcert, 45, 18, 3, "クリスマスコンサート", calYouth, "ホール", "チケットは受付で配布"},
	}

	var events []*model.Event
	for _, o := range items {
		d := base.AddDate(0, 0, o.daysAhead)
		if !d.Before(horizon) {
			continue
		}
		start := d.Add(time.Duration(o.startHour) * time.Hour)
		events = append(events, &model.Event{
			TenantID:      tenantID,
			AppointmentID: o.appointmentID,
			StartAt:       start,
			EndAt:         start.Add(time.Duration(o.durationHours) * time.Hour),
			Title:         o.title,
			CalendarID:    o.calendarID,
			Location:      o.location,
			Note:          o.note,
		})
	}
	return events
}

// CalendarIDs は生成されるカレンダーIDの一覧を返す。整合性チェックに使う。
func CalendarIDs() []string {
	return []string{calWorship, calYouth, calInternal}
}

// Fingerprint はSeedの内容を要約した文字列を返す。ログ出力用。
func (s *Seed) Fingerprint() string {
	return fmt.Sprintf("calendars=%d events=%d services=%d",
		len(s.Calendars), len(s.Events), len(s.Services))
}
