package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/qs3c/group_sub_server/config"
)

var ErrNoRecipient = errors.New("email recipient not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service 通过 SMTP 投递群组通知，收件人为配置中的运营邮箱
type Service struct {
	cfg  *config.EmailConfig
	send sendFunc
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

// SendNotification 发送群组通知
func (s *Service) SendNotification(groupID int64, kind, message string) error {
	if s.cfg.To == "" {
		return ErrNoRecipient
	}
	subject := fmt.Sprintf("[group %d] %s", groupID, subjectFor(kind))
	return s.sendPlain(s.cfg.To, subject, message)
}

func subjectFor(kind string) string {
	switch kind {
	case "expiry_alert":
		return "Subscription expiry alert"
	case "":
		return "Notification"
	default:
		return strings.ReplaceAll(kind, "_", " ")
	}
}

// sendPlain 发送纯文本邮件
func (s *Service) sendPlain(to, subject, body string) error {
	msg := buildMessage(s.cfg.From, to, subject, "text/plain; charset=UTF-8", body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, msg)
}

func buildMessage(from, to, subject, contentType, body string) []byte {
	headers := [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", contentType},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
