package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/domain/product"
	log "github.com/sirupsen/logrus"
)

var (
	ErrDeclined     = errors.New("payment declined")
	ErrMissingToken = errors.New("payment token is required")
)

// Client charges through a card processor's form-encoded charges endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	currency string
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
		currency: "usd",
	}
}

// Authorize posts a single charge. Any non-2xx response is a decline.
func (c *Client) Authorize(ctx context.Context, amount product.Price, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount.Cents(), 10))
	form.Set("currency", c.currency)
	form.Set("source", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrDeclined, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Stub approves every charge with a non-empty token. Used in development.
type Stub struct{}

func (Stub) Authorize(ctx context.Context, amount product.Price, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	log.WithField("amount", amount.String()).Info("stub payment approved")
	return nil
}
