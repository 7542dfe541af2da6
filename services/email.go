package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"

	"intellicourse/config"
	"intellicourse/logger"
	"intellicourse/models"
)

// Notifier sends buyer-facing payment emails. All sends are best-effort;
// delivery failure never fails the payment operation that triggered it.
type Notifier interface {
	PaymentInstructions(p *models.Payment, instructions string)
	PaymentReceipt(p *models.Payment)
	ProofReceived(p *models.Payment)
}

// EmailNotifier delivers notifications over SMTP. A payment with no
// email-shaped user id is skipped.
type EmailNotifier struct{}

func NewEmailNotifier() *EmailNotifier {
	return &EmailNotifier{}
}

func (n *EmailNotifier) PaymentInstructions(p *models.Payment, instructions string) {
	to := recipientFor(p)
	if to == "" {
		return
	}
	subject := fmt.Sprintf("Payment instructions for order %s", p.Reference)
	body := fmt.Sprintf(
		"<p>Thank you for your order.</p><pre>%s</pre><p>Reference: <strong>%s</strong></p>",
		instructions, p.Reference)
	go sendEmail(to, subject, body)
}

func (n *EmailNotifier) PaymentReceipt(p *models.Payment) {
	to := recipientFor(p)
	if to == "" {
		return
	}
	subject := "Your IntelliCourse payment is confirmed"
	body := fmt.Sprintf(
		"<p>Payment <strong>%s</strong> is confirmed.</p><p>Your download ID: <strong>%s</strong></p>",
		p.ID, p.DownloadID)

	go func() {
		receiptPath, err := GenerateReceipt(p)
		if err != nil {
			logger.Warn("Receipt PDF generation failed for payment %s: %v", p.ID, err)
			sendEmail(to, subject, body)
			return
		}
		defer os.Remove(receiptPath)
		sendEmail(to, subject, body, receiptPath)
	}()
}

func (n *EmailNotifier) ProofReceived(p *models.Payment) {
	to := recipientFor(p)
	if to == "" {
		return
	}
	subject := "We received your proof of payment"
	body := fmt.Sprintf(
		"<p>Proof of payment for order <strong>%s</strong> received. Access will be granted once verified.</p>",
		p.Reference)
	go sendEmail(to, subject, body)
}

func recipientFor(p *models.Payment) string {
	if strings.Contains(p.Request.UserID, "@") {
		return p.Request.UserID
	}
	return ""
}

// sendEmail sends an HTML email via SMTP, optionally attaching files.
func sendEmail(to, subject, body string, attachments ...string) error {
	cfg := config.AppConfig

	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if from == "" {
		logger.Warn("Email sender not configured, skipping mail to %s", to)
		return fmt.Errorf("email sender not configured (set EMAIL_FROM or SMTP_USER)")
	}
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		logger.Warn("SMTP credentials not configured, skipping mail to %s", to)
		return fmt.Errorf("smtp credentials not configured (set SMTP_USER and SMTP_PASS)")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	for _, a := range attachments {
		m.Attach(a)
	}

	port := 587
	if v, err := strconv.Atoi(cfg.SMTPPort); err == nil {
		port = v
	}

	d := gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		logger.Error("Failed to send email to %s: %v", to, err)
		return err
	}

	logger.Info("Email sent to %s: %s", to, subject)
	return nil
}
