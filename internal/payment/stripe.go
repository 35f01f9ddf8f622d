package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StripeConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
}

// Stripe talks to the card-rail payment intents API. Amounts are sent in
// cents; the intent has no separate execute step, so Confirm degenerates to
// a status read.
type Stripe struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripe(cfg StripeConfig) *Stripe {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	return &Stripe{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Stripe) Name() string { return "stripe" }

type stripeIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

func (s *Stripe) CreateIntent(ctx context.Context, orderID uint, amount decimal.Decimal) (*Intent, error) {
	form := url.Values{}
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	form.Set("amount", strconv.FormatInt(cents, 10))
	form.Set("currency", "usd")
	form.Set("metadata[order_id]", strconv.FormatUint(uint64(orderID), 10))
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: stripe: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var pi stripeIntent
	if err := json.Unmarshal(body, &pi); err != nil {
		return nil, fmt.Errorf("%w: stripe: decode response: %v", ErrProvider, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: stripe: no payment intent id returned", ErrProvider)
	}

	return &Intent{
		TransactionID: pi.ID,
		ClientSecret:  pi.ClientSecret,
		RawResponse:   body,
	}, nil
}

func (s *Stripe) Confirm(ctx context.Context, transactionID string) (*Result, error) {
	return s.Query(ctx, transactionID)
}

func (s *Stripe) Query(ctx context.Context, transactionID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/v1/payment_intents/"+url.PathEscape(transactionID), nil)
	if err != nil {
		return failResult(err), nil
	}

	body, err := s.do(req)
	if err != nil {
		return failResult(err), nil
	}

	var pi stripeIntent
	if err := json.Unmarshal(body, &pi); err != nil {
		return failResult(err), nil
	}

	return &Result{Status: mapStripeStatus(pi.Status), RawResponse: body}, nil
}

func mapStripeStatus(remote string) Status {
	switch remote {
	case "succeeded":
		return StatusSuccess
	case "canceled", "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// VerifySignature checks the "t=<ts>,v1=<hex hmac>" signature header. With
// no webhook secret configured verification is skipped.
func (s *Stripe) VerifySignature(payload []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" {
		return true
	}

	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			if v1 == "" {
				v1 = kv[1]
			}
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)

	got, err := hex.DecodeString(v1)
	if err != nil {
		return false
	}
	return hmac.Equal(got, mac.Sum(nil))
}

func (s *Stripe) ExtractTransactionID(payload []byte) string {
	var event struct {
		Data struct {
			Object struct {
				ID string `json:"id"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return ""
	}
	return event.Data.Object.ID
}

func (s *Stripe) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var remote struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &remote)
		msg := remote.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: stripe: %s", ErrProvider, msg)
	}

	return body, nil
}
