// Package notify は予約確認メールの送信を提供する。
//
// プロバイダーからの招待通知は抑止している（sendUpdates=none）ため、
// 参加者への連絡はこのパッケージが送る確認メールのみとなる。
// メールにはMETHOD:PUBLISHのICSファイルを添付する。
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/hitoshi/bookman/internal/model"
)

// MailConfig はSMTP送信の設定。
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// sendFunc はsmtp.SendMail互換の送信関数。テスト用に差し替え可能。
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer はSMTP経由で予約確認メールを送信する。
type Mailer struct {
	config MailConfig
	send   sendFunc
}

// NewMailer はMailerを生成する。
func NewMailer(config MailConfig) *Mailer {
	return &Mailer{
		config: config,
		send:   smtp.SendMail,
	}
}

// SendConfirmation は参加者に予約確認メールを送信する。
// ICS添付付きのMIMEマルチパートメッセージを組み立てて送る。
func (m *Mailer) SendConfirmation(ctx context.Context, result *model.BookingResult, attendee model.Attendee) error {
	if attendee.Email == "" {
		return fmt.Errorf("attendee email is empty")
	}

	msg := buildMessage(m.config.From, attendee, result)

	addr := m.config.Host + ":" + m.config.Port
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.send(addr, auth, m.config.From, []string{attendee.Email}, msg); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}
	return nil
}

const mimeBoundary = "bookman-confirmation"

// buildMessage はICS添付付きのMIMEメッセージを組み立てる。
func buildMessage(from string, attendee model.Attendee, result *model.BookingResult) []byte {
	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + attendee.Email + "\r\n")
	b.WriteString("Subject: Booking confirmed: " + result.Summary + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=" + mimeBoundary + "\r\n")
	b.WriteString("\r\n")

	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	name := attendee.DisplayName
	if name == "" {
		name = attendee.Email
	}
	fmt.Fprintf(&b, "Hello %s,\r\n\r\nYour booking %q is confirmed.\r\n\r\nStart: %s\r\nEnd:   %s\r\n",
		name, result.Summary,
		result.Start.UTC().Format("2006-01-02 15:04 MST"),
		result.End.UTC().Format("2006-01-02 15:04 MST"),
	)
	b.WriteString("\r\n")

	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/calendar; method=PUBLISH; charset=utf-8\r\n")
	b.WriteString("Content-Disposition: attachment; filename=invite.ics\r\n")
	b.WriteString("\r\n")
	b.WriteString(BuildICS(result))
	b.WriteString("\r\n")

	b.WriteString("--" + mimeBoundary + "--\r\n")

	return []byte(b.String())
}

// BuildICS は予約結果からMETHOD:PUBLISHのiCalendar表現を生成する。
// 招待（REQUEST）ではなく確定済みイベントの配布（PUBLISH）として送る。
func BuildICS(result *model.BookingResult) string {
	const icsTimeLayout = "20060102T150405Z"

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//bookman//booking//EN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + result.EventID + "@bookman",
		"DTSTAMP:" + result.Start.UTC().Format(icsTimeLayout),
		"DTSTART:" + result.Start.UTC().Format(icsTimeLayout),
		"DTEND:" + result.End.UTC().Format(icsTimeLayout),
		"SUMMARY:" + escapeICSText(result.Summary),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// escapeICSText はiCalendarのTEXT値で特別な意味を持つ文字をエスケープする。
func escapeICSText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
