package slots

import (
	"context"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

// BusyFetcher は使用中区間の取得を行うインターフェース。
type BusyFetcher interface {
	// FreeBusy は指定ウィンドウの使用中区間を返す。
	FreeBusy(ctx context.Context, timeMin, timeMax time.Time) ([]model.BusyInterval, error)
}

// Availability は空き状況クエリの結果を表す。
type Availability struct {
	Busy  []model.BusyInterval
	Slots []model.FreeSlot
}

// Service は空き枠の計算を提供する。
type Service struct {
	provider     BusyFetcher
	schedule     Schedule
	slotDuration time.Duration

	// now はテスト用に差し替え可能な現在時刻関数。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(provider BusyFetcher, schedule Schedule, slotDuration time.Duration) *Service {
	return &Service{
		provider:     provider,
		schedule:     schedule,
		slotDuration: slotDuration,
		now:          time.Now,
	}
}

// QueryAvailability は指定した日ウィンドウの空き枠を計算する。
//
// プロバイダーから使用中区間を取得し、候補枠のうち以下をすべて満たすものを返す:
//   - ウィンドウ内に収まる
//   - どの使用中区間とも重ならない（半開区間比較）
//   - 開始時刻がクエリ時点より厳密に未来である
//
// 取得に失敗した場合は結果を合成せず、エラーをそのまま返す。
// 「取得失敗＝すべて空き」と誤解させるレスポンスは返さない。
func (s *Service) QueryAvailability(ctx context.Context, start, end time.Time) (*Availability, error) {
	if !start.Before(end) {
		return nil, model.NewInvalidTimeRangeError()
	}

	busy, err := s.provider.FreeBusy(ctx, start, end)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var free []model.FreeSlot
	for _, candidate := range s.schedule.CandidateSlots(start) {
		slotEnd := candidate.Add(s.slotDuration)

		// ウィンドウ外の候補は除外
		if candidate.Before(start) || slotEnd.After(end) {
			continue
		}
		// 過去または現在の枠は予約できない
		if !candidate.After(now) {
			continue
		}
		if overlapsAny(candidate, slotEnd, busy) {
			continue
		}
		free = append(free, model.FreeSlot{Start: candidate})
	}

	return &Availability{Busy: busy, Slots: free}, nil
}

// overlapsAny は枠 [start, end) がいずれかの使用中区間と重なるかどうかを返す。
func overlapsAny(start, end time.Time, busy []model.BusyInterval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
