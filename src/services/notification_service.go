package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/username/blackledger/backend/src/config"
	"github.com/username/blackledger/backend/src/logger"
)

func NewNotificationService() NotificationService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Notification service will default to mock.")
		return &MockNotificationService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing notification service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" || config.Cfg.AlertRecipient == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, SenderEmail or AlertRecipient missing). Falling back to MockNotificationService.")
			return &MockNotificationService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunNotificationService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			recipient:   config.Cfg.AlertRecipient,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" || config.Cfg.AlertRecipient == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockNotificationService.")
			return &MockNotificationService{}
		}
		return &SMTPNotificationService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
			Recipient:    config.Cfg.AlertRecipient,
		}
	default:
		logger.L.Info("Defaulting to MockNotificationService.")
		return &MockNotificationService{}
	}
}

type SMTPNotificationService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	Recipient    string
}

func (s *SMTPNotificationService) SendSyncAlert(subject, body string) error {
	from := s.SenderEmail
	to := []string{s.Recipient}

	header := make(map[string]string)
	header["From"] = from
	header["To"] = s.Recipient
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	err := smtp.SendMail(addr, auth, from, to, []byte(message))
	if err != nil {
		logger.L.Error("Failed to send sync alert via SMTP", "error", err, "to", s.Recipient)
		return fmt.Errorf("failed to send sync alert via SMTP: %w", err)
	}
	logger.L.Info("Sync alert sent successfully via SMTP", "to", s.Recipient)
	return nil
}

type MailgunNotificationService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	recipient   string
}

func (s *MailgunNotificationService) SendSyncAlert(subject, body string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)

	message := s.mg.NewMessage(from, subject, body, s.recipient)
	message.AddTag("sync-alert")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send sync alert via Mailgun", "error", err, "to", s.recipient, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed for sync alert: %w. Response: %s", err, resp)
	}

	logger.L.Info("Sync alert sent successfully via Mailgun", "to", s.recipient, "id", id, "mailgunResp", resp)
	return nil
}

type MockNotificationService struct{}

func (m *MockNotificationService) SendSyncAlert(subject, body string) error {
	logger.L.Info("MockNotificationService: Would send sync alert.", "subject", subject, "body", body)
	return nil
}
