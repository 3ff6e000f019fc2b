package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/soundcraft/server/internal/shared/config"
	"go.uber.org/zap"
)

// OrderConfirmation carries the data rendered into the order confirmation email.
type OrderConfirmation struct {
	Name        string
	OrderNumber string
	Gateway     string
	Items       []OrderConfirmationItem
	Total       string // rupees, formatted
}

// OrderConfirmationItem is a single line on the confirmation email.
type OrderConfirmationItem struct {
	Name     string
	Quantity int
	Price    string // rupees, formatted
}

// Mailer sends transactional email.
type Mailer interface {
	SendOTPEmail(ctx context.Context, email, name, code string) error
	SendPasswordResetEmail(ctx context.Context, email, name, code string) error
	SendOrderConfirmation(ctx context.Context, email string, data *OrderConfirmation) error
}

// SMTPMailer sends emails via SMTP.
type SMTPMailer struct {
	config *config.MailConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer.
func NewSMTPMailer(cfg *config.MailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: cfg,
		logger: logger,
	}
}

// SendOTPEmail sends a one-time verification code.
func (s *SMTPMailer) SendOTPEmail(ctx context.Context, email, name, code string) error {
	subject := "Your SoundCraft verification code"
	body, err := s.renderTemplate(otpEmailTemplate, map[string]string{
		"Name": name,
		"Code": code,
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

// SendPasswordResetEmail sends a password reset code.
func (s *SMTPMailer) SendPasswordResetEmail(ctx context.Context, email, name, code string) error {
	subject := "Reset your SoundCraft password"
	body, err := s.renderTemplate(passwordResetEmailTemplate, map[string]string{
		"Name": name,
		"Code": code,
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

// SendOrderConfirmation sends the receipt for a completed order.
func (s *SMTPMailer) SendOrderConfirmation(ctx context.Context, email string, data *OrderConfirmation) error {
	subject := fmt.Sprintf("Order %s confirmed", data.OrderNumber)
	body, err := s.renderOrderTemplate(data)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	return s.sendEmail(email, subject, body)
}

func (s *SMTPMailer) sendEmail(to, subject, body string) error {
	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.User != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.FromAddress, []string{to}, []byte(msg)); err != nil {
		s.logger.Error("failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (s *SMTPMailer) renderTemplate(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *SMTPMailer) renderOrderTemplate(data *OrderConfirmation) (string, error) {
	t, err := template.New("email").Parse(orderConfirmationTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const otpEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #B45309; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Welcome to SoundCraft!</h1>
        <p>Hi {{.Name}},</p>
        <p>Use this code to verify your email address:</p>
        <p class="code">{{.Code}}</p>
        <p>The code expires in 10 minutes.</p>
        <div class="footer">
            <p>If you didn't create an account, you can safely ignore this email.</p>
        </div>
    </div>
</body>
</html>
`

const passwordResetEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #B45309; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Reset Your Password</h1>
        <p>Hi {{.Name}},</p>
        <p>We received a request to reset your password. Use this code to continue:</p>
        <p class="code">{{.Code}}</p>
        <p>The code expires in 10 minutes.</p>
        <div class="footer">
            <p>If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
        </div>
    </div>
</body>
</html>
`

const orderConfirmationTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; }
        .total { font-weight: bold; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Thanks for your order, {{.Name}}!</h1>
        <p>Your payment via {{.Gateway}} was received and order <strong>{{.OrderNumber}}</strong> is confirmed.</p>
        <table>
            <tr><th>Item</th><th>Qty</th><th>Price</th></tr>
            {{range .Items}}
            <tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>Rs. {{.Price}}</td></tr>
            {{end}}
            <tr class="total"><td colspan="2">Total</td><td>Rs. {{.Total}}</td></tr>
        </table>
        <div class="footer">
            <p>Questions about your order? Just reply to this email.</p>
        </div>
    </div>
</body>
</html>
`

// NoOpMailer logs instead of sending, for development.
type NoOpMailer struct {
	logger *zap.Logger
}

// NewNoOpMailer creates a no-op mailer.
func NewNoOpMailer(logger *zap.Logger) *NoOpMailer {
	return &NoOpMailer{logger: logger}
}

// SendOTPEmail logs but doesn't send.
func (s *NoOpMailer) SendOTPEmail(ctx context.Context, email, name, code string) error {
	s.logger.Info("otp email (no-op)",
		zap.String("email", email),
		zap.String("code", code),
	)
	return nil
}

// SendPasswordResetEmail logs but doesn't send.
func (s *NoOpMailer) SendPasswordResetEmail(ctx context.Context, email, name, code string) error {
	s.logger.Info("password reset email (no-op)",
		zap.String("email", email),
		zap.String("code", code),
	)
	return nil
}

// SendOrderConfirmation logs but doesn't send.
func (s *NoOpMailer) SendOrderConfirmation(ctx context.Context, email string, data *OrderConfirmation) error {
	s.logger.Info("order confirmation email (no-op)",
		zap.String("email", email),
		zap.String("order", data.OrderNumber),
	)
	return nil
}
