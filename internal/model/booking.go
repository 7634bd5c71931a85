// Package model はドメインモデルを定義する。
package model

import "time"

// BusyInterval はプロバイダーから返されたカレンダーの使用中区間を表す。
// 読み取り専用で、クエリごとに取得し直す。
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps は半開区間 [start, end) がこの使用中区間と重なるかどうかを返す。
// 重なり条件: start < busy.End かつ end > busy.Start
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// FreeSlot は予約可能な空き枠を表す。
// 終了時刻は開始時刻 + 固定枠長で暗黙的に決まる。
type FreeSlot struct {
	Start time.Time `json:"start"`
}

// Attendee は予約リクエストに含まれる参加者情報を表す。
type Attendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// BookingRequest は予約作成リクエストを表す。
// StartTimeとSummaryは必須。Attendeesは任意。
type BookingRequest struct {
	StartTime string     `json:"start_time"`
	Summary   string     `json:"summary"`
	Attendees []Attendee `json:"attendees"`
}

// BookingResult は予約作成の結果を表す。
// プロバイダーが割り当てたイベントIDと確定した開始・終了時刻を含む。
type BookingResult struct {
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}
