package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verification statuses reported by the gateway.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPending   = "pending"
)

var ErrGateway = errors.New("payment gateway error")

type SessionRequest struct {
	Reference string
	Amount    float64
	Currency  string
	Email     string
	Metadata  map[string]string
}

type Session struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type Verification struct {
	Reference string
	Status    string
	Amount    float64
	Currency  string
	PaidAt    *time.Time
}

// Client talks to a hosted checkout gateway that takes amounts in minor
// currency units and authenticates with a bearer secret.
type Client struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	HTTP        *http.Client
}

func NewClient(baseURL, secretKey, callbackURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		SecretKey:   secretKey,
		CallbackURL: callbackURL,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateSession opens a checkout for req and returns the URL the buyer pays at.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body := map[string]interface{}{
		"reference": req.Reference,
		"amount":    toMinor(req.Amount),
		"currency":  req.Currency,
		"email":     req.Email,
	}
	if c.CallbackURL != "" {
		body["callback_url"] = c.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var out Session
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if out.Reference == "" {
		out.Reference = req.Reference
	}
	return &out, nil
}

// Verify asks the gateway for the current state of a payment.
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	var out struct {
		Reference string     `json:"reference"`
		Status    string     `json:"status"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		PaidAt    *time.Time `json:"paid_at"`
	}
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &Verification{
		Reference: out.Reference,
		Status:    strings.ToLower(out.Status),
		Amount:    float64(out.Amount) / 100,
		Currency:  out.Currency,
		PaidAt:    out.PaidAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", ErrGateway, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrGateway, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func toMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
