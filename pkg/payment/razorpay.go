package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
)

// ErrUnavailable means the gateway cannot be used at all (missing key pair).
// A user-dismissed payment is not an error here: dismissal never reaches this
// package, it lands on the cancel flow which tears the attempt down.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client creates Razorpay payment links. There is no retry policy here; a
// failed or dismissed payment simply never reaches order persistence.
type Client struct {
	config     *config.RazorpayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type Customer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Link is the gateway handoff: the customer completes payment at ShortURL,
// and the completion callback later carries the payment reference id.
type Link struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

func NewClient(cfg *config.RazorpayConfig, logger *zap.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type createLinkRequest struct {
	Amount        int64    `json:"amount"` // minor currency units
	Currency      string   `json:"currency"`
	AcceptPartial bool     `json:"accept_partial"`
	Description   string   `json:"description"`
	Customer      Customer `json:"customer"`
	Notify        struct {
		SMS   bool `json:"sms"`
		Email bool `json:"email"`
	} `json:"notify"`
	ReminderEnable bool `json:"reminder_enable"`
}

// CreateLink opens a payment flow for the given amount in minor currency
// units (paise). It fails fast with ErrUnavailable when the key pair is not
// configured, before any network I/O.
func (c *Client) CreateLink(ctx context.Context, amount int64, currency, description string, customer Customer) (*Link, error) {
	if !c.config.Configured() {
		return nil, ErrUnavailable
	}

	reqBody := createLinkRequest{
		Amount:         amount,
		Currency:       currency,
		Description:    description,
		Customer:       customer,
		ReminderEnable: true,
	}
	reqBody.Notify.SMS = true

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/payment_links", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment link request: %w", err)
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment link request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment link response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Payment link creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var link Link
	if err := json.Unmarshal(body, &link); err != nil {
		return nil, fmt.Errorf("failed to decode payment link response: %w", err)
	}

	c.logger.Info("Payment link created",
		zap.String("link_id", link.ID),
		zap.Int64("amount", amount))

	return &link, nil
}
