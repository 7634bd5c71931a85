// Package slots は候補枠の生成と空き枠の計算を提供する。
package slots

import "time"

// Schedule は1日の候補枠の生成規則を表す。
// 候補は毎正時に置かれる。枠長より広い間隔にすることで予約間のバッファを確保する。
type Schedule struct {
	StartHour int            // 最初の候補の時（例: 9）
	EndHour   int            // 最後の候補の時（例: 17、この時刻を含む）
	Location  *time.Location // 候補を生成するタイムゾーン
}

// CandidateSlots は指定日の候補枠の開始時刻を昇順で返す。
// dayはSchedule.Locationに変換した上でその日付の候補を生成する。
func (s Schedule) CandidateSlots(day time.Time) []time.Time {
	local := day.In(s.Location)

	var candidates []time.Time
	for hour := s.StartHour; hour <= s.EndHour; hour++ {
		candidates = append(candidates, time.Date(
			local.Year(), local.Month(), local.Day(),
			hour, 0, 0, 0, s.Location,
		))
	}
	return candidates
}
