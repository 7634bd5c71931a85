// Package booking は予約作成のビジネスロジックを提供する。
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/calendar"
	"github.com/hitoshi/bookman/internal/model"
)

// EventInserter はカレンダーイベントの作成を行うインターフェース。
type EventInserter interface {
	// InsertEvent はイベントを作成し、プロバイダーが割り当てたIDを含むイベントを返す。
	InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
}

// ConfirmationSender は予約確認メールの送信を行うインターフェース。
type ConfirmationSender interface {
	// SendConfirmation は予約確認メールを送信する。
	SendConfirmation(ctx context.Context, result *model.BookingResult, attendee model.Attendee) error
}

// ResultRecorder は予約作成結果のメトリクスを記録する。
// 未設定（nil）の場合は記録しない。
type ResultRecorder interface {
	RecordBookingSuccess()
	RecordBookingFailure(reason string)
}

// Service は予約作成のビジネスロジックを提供する。
type Service struct {
	inserter  EventInserter
	sanitizer InputSanitizer
	duration  time.Duration

	// notifier は任意。nilの場合は確認メールを送らない。
	notifier ConfirmationSender

	// recorder は任意のメトリクス記録先。
	recorder ResultRecorder
}

// NewService はServiceを生成する。
func NewService(inserter EventInserter, sanitizer InputSanitizer, duration time.Duration) *Service {
	return &Service{
		inserter:  inserter,
		sanitizer: sanitizer,
		duration:  duration,
	}
}

// WithNotifier は予約確認メールの送信先を設定する。
func (s *Service) WithNotifier(notifier ConfirmationSender) *Service {
	s.notifier = notifier
	return s
}

// WithRecorder はメトリクス記録先を設定する。
func (s *Service) WithRecorder(recorder ResultRecorder) *Service {
	s.recorder = recorder
	return s
}

// CreateBooking は予約を検証し、カレンダーイベントとして作成する。
//
// 必須フィールドの検証はネットワーク呼び出しより前に行い、不足フィールドを
// すべて列挙したValidationErrorを返す。終了時刻は開始時刻 + 固定枠長で決まる。
//
// この操作は冪等ではない。同一リクエストを2回送ると2つのイベントが作成される。
// イベント作成後の確認メール送信失敗は予約の成否に影響しない（イベントは残る）。
func (s *Service) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
	result, err := s.createBooking(ctx, req)
	if err != nil {
		if s.recorder != nil {
			s.recorder.RecordBookingFailure(failureReason(err))
		}
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RecordBookingSuccess()
	}
	return result, nil
}

func (s *Service) createBooking(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
	var missing []string
	if req.StartTime == "" {
		missing = append(missing, "start_time")
	}
	if req.Summary == "" {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, model.NewInvalidTimestampError(req.StartTime)
	}
	end := start.Add(s.duration)

	summary := s.sanitizer.Sanitize(req.Summary)

	var attendee model.Attendee
	if len(req.Attendees) > 0 {
		attendee = model.Attendee{
			Email:       s.sanitizer.Sanitize(req.Attendees[0].Email),
			DisplayName: s.sanitizer.Sanitize(req.Attendees[0].DisplayName),
		}
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: fmt.Sprintf("%s\n\nBooked by: %s <%s>", summary, attendee.DisplayName, attendee.Email),
		Start:       calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := s.inserter.InsertEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	result := &model.BookingResult{
		EventID: created.ID,
		Summary: summary,
		Start:   start,
		End:     end,
	}

	// イベント作成後の通知失敗は予約を失敗させない。ロールバックも行わない。
	if s.notifier != nil && attendee.Email != "" {
		if err := s.notifier.SendConfirmation(ctx, result, attendee); err != nil {
			slog.Warn("failed to send booking confirmation",
				slog.String("event_id", result.EventID),
				slog.String("error", err.Error()),
			)
		}
	}

	return result, nil
}

// failureReason はメトリクスラベル用にエラーを分類する。
func failureReason(err error) string {
	switch {
	case isValidationError(err):
		return "validation"
	default:
		return "provider"
	}
}

func isValidationError(err error) bool {
	apiErr, ok := err.(*model.APIError)
	return ok && apiErr.Category == "validation"
}
