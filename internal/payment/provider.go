package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Status is the canonical three-valued payment outcome. Every provider maps
// its own status vocabulary into this set; unknown remote codes map to
// StatusPending, never to StatusSuccess.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var (
	// ErrProvider wraps remote payment network failures. The remote error
	// message is kept in the wrapped text, never swallowed.
	ErrProvider = errors.New("payment provider error")

	// ErrUnknownProvider is returned for a provider tag the registry does
	// not know. This is a caller mistake, not a remote failure.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

type Intent struct {
	TransactionID string
	ClientSecret  string
	PaymentURL    string
	RawResponse   json.RawMessage
}

type Result struct {
	Status      Status
	RawResponse json.RawMessage
}

// Provider is the capability set every payment network integration exposes.
//
// Confirm and Query absorb transport failures into a failed Result with the
// error text embedded in RawResponse; they only return a non-nil error when
// the operation could not even be attempted (e.g. credential acquisition).
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, orderID uint, amount decimal.Decimal) (*Intent, error)
	Confirm(ctx context.Context, transactionID string) (*Result, error)
	Query(ctx context.Context, transactionID string) (*Result, error)
	// VerifySignature authenticates an inbound webhook payload. Providers
	// without a configured secret accept everything.
	VerifySignature(payload []byte, signature string) bool
	// ExtractTransactionID pulls the transaction id out of a webhook body.
	// Empty string means the payload is not recognized and must be ignored.
	ExtractTransactionID(payload []byte) string
}

// Registry is the closed set of providers, resolved once at startup.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[strings.ToLower(p.Name())] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// failResult records a transport-level failure as a durable failed status,
// with the error text retained in the raw response blob.
func failResult(err error) *Result {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return &Result{Status: StatusFailed, RawResponse: raw}
}
