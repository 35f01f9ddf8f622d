package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestStripeCreateIntent(t *testing.T) {
	var gotPath, gotAuth, gotAmount, gotOrderID, gotIdemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdemKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, r.ParseForm())
		gotAmount = r.PostForm.Get("amount")
		gotOrderID = r.PostForm.Get("metadata[order_id]")
		fmt.Fprint(w, `{"id":"pi_123","status":"requires_payment_method","client_secret":"pi_123_secret"}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeConfig{BaseURL: srv.URL, SecretKey: "sk_test"})

	intent, err := s.CreateIntent(context.Background(), 42, decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	require.Equal(t, "pi_123", intent.TransactionID)
	require.Equal(t, "pi_123_secret", intent.ClientSecret)
	require.NotEmpty(t, intent.RawResponse)

	require.Equal(t, "/v1/payment_intents", gotPath)
	require.Equal(t, "Bearer sk_test", gotAuth)
	require.Equal(t, "6000", gotAmount)
	require.Equal(t, "42", gotOrderID)
	require.NotEmpty(t, gotIdemKey)
}

func TestStripeCreateIntentRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeConfig{BaseURL: srv.URL, SecretKey: "sk_test"})

	_, err := s.CreateIntent(context.Background(), 1, decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, ErrProvider)
	require.Contains(t, err.Error(), "Your card was declined.")
}

func TestStripeQueryStatusMapping(t *testing.T) {
	cases := []struct {
		remote string
		want   Status
	}{
		{"succeeded", StatusSuccess},
		{"canceled", StatusFailed},
		{"failed", StatusFailed},
		{"requires_payment_method", StatusPending},
		{"processing", StatusPending},
		{"some_future_status", StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.remote, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
				fmt.Fprintf(w, `{"id":"pi_123","status":%q}`, tc.remote)
			}))
			defer srv.Close()

			s := NewStripe(StripeConfig{BaseURL: srv.URL, SecretKey: "sk_test"})

			result, err := s.Query(context.Background(), "pi_123")
			require.NoError(t, err)
			require.Equal(t, tc.want, result.Status)
		})
	}
}

func TestStripeQueryAbsorbsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close()

	s := NewStripe(StripeConfig{BaseURL: srv.URL, SecretKey: "sk_test"})

	result, err := s.Query(context.Background(), "pi_123")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.Contains(t, string(result.RawResponse), "error")
}

func stripeSign(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestStripeVerifySignature(t *testing.T) {
	s := NewStripe(StripeConfig{WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1"}`)
	ts := "1693526400"

	valid := fmt.Sprintf("t=%s,v1=%s", ts, stripeSign("whsec_test", ts, payload))
	require.True(t, s.VerifySignature(payload, valid))

	wrongKey := fmt.Sprintf("t=%s,v1=%s", ts, stripeSign("whsec_other", ts, payload))
	require.False(t, s.VerifySignature(payload, wrongKey))

	tampered := []byte(`{"id":"evt_2"}`)
	require.False(t, s.VerifySignature(tampered, valid))

	require.False(t, s.VerifySignature(payload, "garbage"))
	require.False(t, s.VerifySignature(payload, "t=123"))
	require.False(t, s.VerifySignature(payload, fmt.Sprintf("t=%s,v1=zzzz", ts)))
}

func TestStripeVerifySignatureNoSecret(t *testing.T) {
	s := NewStripe(StripeConfig{})
	require.True(t, s.VerifySignature([]byte(`{}`), "anything"))
}

func TestStripeExtractTransactionID(t *testing.T) {
	s := NewStripe(StripeConfig{})

	id := s.ExtractTransactionID([]byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_9"}}}`))
	require.Equal(t, "pi_9", id)

	require.Empty(t, s.ExtractTransactionID([]byte(`{"type":"customer.updated","data":{"object":{}}}`)))
	require.Empty(t, s.ExtractTransactionID([]byte(`not json`)))
}
