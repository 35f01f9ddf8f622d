package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// tokenExpiryMargin is subtracted from the provider's stated token lifetime
// so a near-expired credential is never used for a call.
const tokenExpiryMargin = 100 * time.Second

const defaultTokenLifetime = 3600

type BkashConfig struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	Username    string
	Password    string
	CallbackURL string
}

// Bkash talks to the tokenized-checkout wallet API: a rotating bearer token
// obtained via a grant call, then create/execute/query against it. The token
// is cached on the instance and refreshed through a single in-flight grant.
type Bkash struct {
	cfg    BkashConfig
	client *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	refresh singleflight.Group
	now     func() time.Time
}

func NewBkash(cfg BkashConfig) *Bkash {
	return &Bkash{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		now:    time.Now,
	}
}

func (b *Bkash) Name() string { return "bkash" }

func (b *Bkash) getToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.token != "" && b.now().Before(b.expiresAt) {
		tok := b.token
		b.mu.Unlock()
		return tok, nil
	}
	b.mu.Unlock()

	v, err, _ := b.refresh.Do("token", func() (any, error) {
		return b.grantToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Bkash) grantToken(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"app_key":    b.cfg.AppKey,
		"app_secret": b.cfg.AppSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/tokenized/checkout/token/grant", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: bkash: token grant: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("username", b.cfg.Username)
	req.Header.Set("password", b.cfg.Password)

	body, err := b.do(req, "token grant")
	if err != nil {
		return "", err
	}

	var grant struct {
		IDToken   string `json:"id_token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return "", fmt.Errorf("%w: bkash: token grant: decode response: %v", ErrProvider, err)
	}
	if grant.IDToken == "" {
		return "", fmt.Errorf("%w: bkash: token grant: no id_token returned", ErrProvider)
	}
	if grant.ExpiresIn <= 0 {
		grant.ExpiresIn = defaultTokenLifetime
	}

	b.mu.Lock()
	b.token = grant.IDToken
	b.expiresAt = b.now().Add(time.Duration(grant.ExpiresIn)*time.Second - tokenExpiryMargin)
	b.mu.Unlock()

	return grant.IDToken, nil
}

func (b *Bkash) CreateIntent(ctx context.Context, orderID uint, amount decimal.Decimal) (*Intent, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	orderRef := strconv.FormatUint(uint64(orderID), 10)
	payload := map[string]string{
		"mode":                  "0011",
		"payerReference":        "order_" + orderRef,
		"callbackURL":           b.cfg.CallbackURL,
		"amount":                amount.StringFixed(2),
		"currency":              "BDT",
		"intent":                "sale",
		"merchantInvoiceNumber": orderRef,
	}

	body, err := b.post(ctx, token, "/tokenized/checkout/payment/create", payload, "payment create")
	if err != nil {
		return nil, err
	}

	var created struct {
		StatusCode    string `json:"statusCode"`
		StatusMessage string `json:"statusMessage"`
		PaymentID     string `json:"paymentID"`
		BkashURL      string `json:"bkashURL"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("%w: bkash: payment create: decode response: %v", ErrProvider, err)
	}
	if created.StatusCode != "0000" {
		msg := created.StatusMessage
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: bkash: %s", ErrProvider, msg)
	}
	if created.PaymentID == "" {
		return nil, fmt.Errorf("%w: bkash: no payment id returned", ErrProvider)
	}

	return &Intent{
		TransactionID: created.PaymentID,
		PaymentURL:    created.BkashURL,
		RawResponse:   body,
	}, nil
}

// Confirm executes the two-phase wallet payment.
func (b *Bkash) Confirm(ctx context.Context, transactionID string) (*Result, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := b.post(ctx, token, "/tokenized/checkout/payment/execute", map[string]string{"paymentID": transactionID}, "payment execute")
	if err != nil {
		return failResult(err), nil
	}

	var executed struct {
		StatusCode string `json:"statusCode"`
	}
	if err := json.Unmarshal(body, &executed); err != nil {
		return failResult(err), nil
	}

	status := StatusPending
	switch executed.StatusCode {
	case "0000":
		status = StatusSuccess
	case "2001", "2002", "2003":
		status = StatusFailed
	}

	return &Result{Status: status, RawResponse: body}, nil
}

func (b *Bkash) Query(ctx context.Context, transactionID string) (*Result, error) {
	token, err := b.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := b.post(ctx, token, "/tokenized/checkout/payment/query", map[string]string{"paymentID": transactionID}, "payment query")
	if err != nil {
		return failResult(err), nil
	}

	var queried struct {
		StatusCode        string `json:"statusCode"`
		TransactionStatus string `json:"transactionStatus"`
	}
	if err := json.Unmarshal(body, &queried); err != nil {
		return failResult(err), nil
	}

	status := StatusFailed
	if queried.StatusCode == "0000" {
		switch queried.TransactionStatus {
		case "Completed", "COMPLETED":
			status = StatusSuccess
		case "Failed", "FAILED", "Cancelled", "CANCELLED":
			status = StatusFailed
		default:
			status = StatusPending
		}
	}

	return &Result{Status: status, RawResponse: body}, nil
}

// VerifySignature always accepts: this provider does not sign webhooks
// reliably, so authenticity is re-established by querying the remote status
// instead of trusting the payload.
func (b *Bkash) VerifySignature(payload []byte, signature string) bool {
	return true
}

func (b *Bkash) ExtractTransactionID(payload []byte) string {
	var event struct {
		PaymentID      string `json:"paymentID"`
		PaymentIDSnake string `json:"payment_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return ""
	}
	if event.PaymentID != "" {
		return event.PaymentID
	}
	return event.PaymentIDSnake
}

func (b *Bkash) post(ctx context.Context, token, path string, payload map[string]string, op string) ([]byte, error) {
	data, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: bkash: %s: %v", ErrProvider, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("X-APP-Key", b.cfg.AppKey)

	return b.do(req, op)
}

func (b *Bkash) do(req *http.Request, op string) ([]byte, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: bkash: %s: %v", ErrProvider, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: bkash: %s: read response: %v", ErrProvider, op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: bkash: %s: %s", ErrProvider, op, resp.Status)
	}
	return body, nil
}
