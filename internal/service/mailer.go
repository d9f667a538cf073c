package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"quizdesk_backend/internal/config"
	"quizdesk_backend/pkg/logger"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type EmailMessage struct {
	To          mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// Mailer 邮件通知（成绩发布）
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NewMailer 未配置 SendGrid 密钥时只打印到日志
func NewMailer(cfg config.MailConfig) Mailer {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	if cfg.SendgridAPIKey == "" {
		return &ConsoleMailer{From: from}
	}
	return &sendgridMailer{
		key:        cfg.SendgridAPIKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + cfg.FromName + "] ",
	}
}

type sendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Mailer = (*sendgridMailer)(nil)

func (m *sendgridMailer) prepare(msg EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return v3
}

func (m *sendgridMailer) Send(ctx context.Context, msg EmailMessage) error {
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer 本地开发用，邮件写入日志并保留在 Sent 中
type ConsoleMailer struct {
	From mail.Address

	mu   sync.Mutex
	Sent []EmailMessage
}

var _ Mailer = (*ConsoleMailer)(nil)

func (m *ConsoleMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()

	logger.Log.Info("Email (console)",
		zap.String("from", m.From.String()),
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextContent),
	)
	return nil
}

func (m *ConsoleMailer) Messages() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmailMessage(nil), m.Sent...)
}

// gradePublishedEmail 成绩发布通知
func gradePublishedEmail(to mail.Address, quizTitle string, finalScore, maxScore int, feedback, appURL string) EmailMessage {
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nYour grade for \"%s\" has been published.\n", to.Name, quizTitle)
	fmt.Fprintf(&text, "Score: %d / %d\n", finalScore, maxScore)
	if feedback != "" {
		fmt.Fprintf(&text, "\nFeedback from your teacher:\n%s\n", feedback)
	}
	if appURL != "" {
		fmt.Fprintf(&text, "\nSee all your grades at %s/student/grades\n", strings.TrimRight(appURL, "/"))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Hi %s,</p>", html.EscapeString(to.Name))
	fmt.Fprintf(&body, "<p>Your grade for <strong>%s</strong> has been published.</p>", html.EscapeString(quizTitle))
	fmt.Fprintf(&body, "<p>Score: %d / %d</p>", finalScore, maxScore)
	if feedback != "" {
		fmt.Fprintf(&body, "<blockquote>%s</blockquote>", html.EscapeString(feedback))
	}

	return EmailMessage{
		To:          to,
		Subject:     "Grade published: " + quizTitle,
		TextContent: text.String(),
		HTMLContent: body.String(),
	}
}
