// Package email, transactional email gönderimi için soyutlama katmanı sağlar.
//
// Service ve event subscriber'lar EmailSender interface'ine bağımlıdır;
// concrete implementasyon Resend API kullanır. Email konuları i18n ile
// alıcının diline göre üretilir.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"

	"github.com/resend/resend-go/v3"

	"github.com/akinalp/storefront/pkg/i18n"
	"github.com/akinalp/storefront/pkg/metrics"
)

// EmailSender, email gönderimi için interface.
type EmailSender interface {
	// SendPasswordReset, plaintext token'ı içeren sıfırlama linki gönderir.
	SendPasswordReset(ctx context.Context, toEmail, lang, token string) error
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
	SendShipmentUpdate(ctx context.Context, msg ShipmentUpdate) error
}

// OrderLine, onay email'indeki tek bir ürün satırı.
type OrderLine struct {
	Name           string
	Quantity       int
	LineTotalCents int64
}

// OrderConfirmation, sipariş onay email'inin verisi.
type OrderConfirmation struct {
	ToEmail       string
	Lang          string
	Username      string
	OrderNumber   string
	Currency      string
	Lines         []OrderLine
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// ShipmentUpdate, kargo durum email'inin verisi.
type ShipmentUpdate struct {
	ToEmail        string
	Lang           string
	OrderNumber    string
	Carrier        string
	TrackingNumber string
	Status         string
	Location       string
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender, Resend API client'ı ile yeni bir EmailSender oluşturur.
// fromEmail Resend'de doğrulanmış domain altında olmalıdır.
func NewResendSender(apiKey, fromEmail, appURL string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendSender) SendPasswordReset(ctx context.Context, toEmail, lang, token string) error {
	l := i18n.NewLocalizer(lang)
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)

	body, err := render(resetTmpl, map[string]any{
		"Heading": l.T("email.passwordReset.heading"),
		"Body":    l.T("email.passwordReset.body"),
		"Button":  l.T("email.passwordReset.button"),
		"Expiry":  l.T("email.passwordReset.expiry"),
		"Link":    resetLink,
	})
	if err != nil {
		return err
	}

	return s.send(ctx, "password_reset", toEmail, l.T("email.passwordReset.subject"), body)
}

func (s *resendSender) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	l := i18n.NewLocalizer(msg.Lang)

	type line struct {
		Name     string
		Quantity int
		Total    string
	}
	lines := make([]line, 0, len(msg.Lines))
	for _, ln := range msg.Lines {
		lines = append(lines, line{Name: ln.Name, Quantity: ln.Quantity, Total: FormatMoney(ln.LineTotalCents, msg.Currency)})
	}

	body, err := render(orderTmpl, map[string]any{
		"Heading":  l.TWithParams("email.orderConfirmation.heading", map[string]string{"user": msg.Username}),
		"Intro":    l.TWithParams("email.orderConfirmation.intro", map[string]string{"order": msg.OrderNumber}),
		"Lines":    lines,
		"Subtotal": FormatMoney(msg.SubtotalCents, msg.Currency),
		"Tax":      FormatMoney(msg.TaxCents, msg.Currency),
		"Shipping": FormatMoney(msg.ShippingCents, msg.Currency),
		"Total":    FormatMoney(msg.TotalCents, msg.Currency),
		"Labels": map[string]string{
			"Subtotal": l.T("email.orderConfirmation.subtotal"),
			"Tax":      l.T("email.orderConfirmation.tax"),
			"Shipping": l.T("email.orderConfirmation.shipping"),
			"Total":    l.T("email.orderConfirmation.total"),
		},
		"Link": fmt.Sprintf("%s/orders", s.appURL),
	})
	if err != nil {
		return err
	}

	subject := l.TWithParams("email.orderConfirmation.subject", map[string]string{"order": msg.OrderNumber})
	return s.send(ctx, "order_confirmation", msg.ToEmail, subject, body)
}

func (s *resendSender) SendShipmentUpdate(ctx context.Context, msg ShipmentUpdate) error {
	l := i18n.NewLocalizer(msg.Lang)

	body, err := render(shipmentTmpl, map[string]any{
		"Heading":  l.TWithParams("email.shipmentUpdate.heading", map[string]string{"order": msg.OrderNumber}),
		"Status":   l.T("shipment.status." + msg.Status),
		"Carrier":  msg.Carrier,
		"Tracking": msg.TrackingNumber,
		"Location": msg.Location,
		"Link":     fmt.Sprintf("%s/orders", s.appURL),
	})
	if err != nil {
		return err
	}

	subject := l.TWithParams("email.shipmentUpdate.subject", map[string]string{"order": msg.OrderNumber})
	return s.send(ctx, "shipment_update", msg.ToEmail, subject, body)
}

func (s *resendSender) send(ctx context.Context, kind, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Storefront <%s>", s.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	return nil
}

// FormatMoney, minor unit tutarı "12.50 USD" formatına çevirir.
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := cents % 100
	pad := ""
	if frac < 10 {
		pad = "0"
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad + strconv.FormatInt(frac, 10) + " " + currency
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
