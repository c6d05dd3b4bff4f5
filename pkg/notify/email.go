package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

// EmailSender delivers transactional email through the Resend REST API.
// Missing configuration degrades to log-and-skip; the caller's flow is never
// blocked by notification problems.
type EmailSender struct {
	config     *config.NotifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewEmailSender(cfg *config.NotifyConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

var orderEmailTemplate = template.Must(template.New("order").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h1 style="color: #333;">New Order Notification</h1>
  <p>You've received a new order. Here are the details:</p>

  <h2 style="border-bottom: 1px solid #eee; padding-bottom: 5px;">Customer Details</h2>
  <ul>
    <li><strong>Name:</strong> {{.Order.CustomerName}}</li>
    <li><strong>Phone:</strong> {{.Order.Phone}}</li>
    <li><strong>Address:</strong> {{.Order.Address}}</li>
  </ul>

  <h2 style="border-bottom: 1px solid #eee; padding-bottom: 5px;">Order Details</h2>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr>
        <th style="border: 1px solid #ddd; padding: 8px; text-align: left;">Product</th>
        <th style="border: 1px solid #ddd; padding: 8px; text-align: left;">Quantity</th>
        <th style="border: 1px solid #ddd; padding: 8px; text-align: left;">Price</th>
      </tr>
    </thead>
    <tbody>
      {{range .ItemList}}
      <tr>
        <td style="border: 1px solid #ddd; padding: 8px;">{{.Name}}</td>
        <td style="border: 1px solid #ddd; padding: 8px;">{{.Quantity}}</td>
        <td style="border: 1px solid #ddd; padding: 8px;">₹{{printf "%.2f" .Price}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  <h2 style="border-bottom: 1px solid #eee; padding-bottom: 5px;">Payment Details</h2>
  <ul>
    <li><strong>Total Amount:</strong> ₹{{printf "%.2f" .Order.Amount}}</li>
    <li><strong>Payment Method:</strong> {{.Order.PaymentMethod}}</li>
    <li><strong>Payment Status:</strong> {{.Order.PaymentStatus}}</li>
    {{if .Order.PaymentID}}<li><strong>Payment ID:</strong> {{.Order.PaymentID}}</li>{{end}}
  </ul>

  <p style="margin-top: 20px; font-size: 0.9em; color: #777;">This is an automated notification from your online store.</p>
</div>
`))

var contactAutoResponseTemplate = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h1 style="color: #333;">Thanks for reaching out, {{.Name}}!</h1>
  <p>We received your message and will get back to you soon.</p>
  <blockquote style="border-left: 3px solid #eee; padding-left: 10px; color: #555;">{{.Message}}</blockquote>
</div>
`))

// SendOrderNotification mails the shop owner about a freshly placed order.
func (e *EmailSender) SendOrderNotification(ctx context.Context, order *models.Order) error {
	if !e.config.EmailConfigured() {
		e.logger.Warn("Email not configured, skipping order notification",
			zap.String("order_id", order.ID))
		return nil
	}

	items, err := order.ItemList()
	if err != nil {
		return fmt.Errorf("failed to decode order items: %w", err)
	}

	var body bytes.Buffer
	data := struct {
		Order    *models.Order
		ItemList []models.OrderItem
	}{Order: order, ItemList: items}
	if err := orderEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render order email: %w", err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	subject := "New Order Received"
	if len(names) > 0 {
		subject = fmt.Sprintf("New Order Received - %s", names[0])
		if len(names) > 1 {
			subject = "New Order Received - Multiple Items"
		}
	}

	return e.send(ctx, e.config.OwnerEmail, subject, body.String())
}

// SendContactAutoResponse acknowledges a contact-form submission.
func (e *EmailSender) SendContactAutoResponse(ctx context.Context, name, email, message string) error {
	if e.config.ResendAPIKey == "" || e.config.FromEmail == "" {
		e.logger.Warn("Email not configured, skipping contact auto-response",
			zap.String("email", email))
		return nil
	}

	var body bytes.Buffer
	data := struct{ Name, Message string }{Name: name, Message: message}
	if err := contactAutoResponseTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render contact email: %w", err)
	}

	return e.send(ctx, email, "We received your message", body.String())
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (e *EmailSender) send(ctx context.Context, to, subject, html string) error {
	data, err := json.Marshal(resendRequest{
		From:    e.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.config.ResendBaseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.config.ResendAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email service returned status %d: %s", resp.StatusCode, body)
	}

	e.logger.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
