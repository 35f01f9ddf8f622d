package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/mykafka"
	"github.com/Skotchmaster/checkout/internal/payment"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/transport"
)

// PaymentService owns Payment records and maps provider outcomes into the
// canonical status set. Settlement side effects are delegated to the order
// state machine, whose Settle is idempotent — this layer may invoke it more
// than once for the same transaction.
type PaymentService struct {
	Repo      *repo.GormRepo
	Providers *payment.Registry
	Orders    *OrderService
	Events    mykafka.Publisher
}

func (s *PaymentService) Initiate(ctx context.Context, orderID uint, providerName string) (*transport.InitiatePaymentResponse, error) {
	prov, err := s.Providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %d is not pending", ErrInvalidState, orderID)
	}

	intent, err := prov.CreateIntent(ctx, orderID, order.TotalAmount)
	if err != nil {
		return nil, err
	}

	pay := &models.Payment{
		OrderID:       orderID,
		Provider:      prov.Name(),
		TransactionID: intent.TransactionID,
		Status:        models.PaymentStatusPending,
		RawResponse:   intent.RawResponse,
	}
	if err := s.Repo.CreatePayment(ctx, pay); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicPaymentEvents, intent.TransactionID, map[string]any{
		"type":       "payment_initiated",
		"payment_id": pay.ID,
		"order_id":   orderID,
		"provider":   prov.Name(),
	})

	return &transport.InitiatePaymentResponse{
		PaymentID:     pay.ID,
		TransactionID: intent.TransactionID,
		ClientSecret:  intent.ClientSecret,
		PaymentURL:    intent.PaymentURL,
		Provider:      prov.Name(),
	}, nil
}

// Confirm finalizes the transaction with the provider and applies the
// outcome. A nil, nil return means no payment matches.
func (s *PaymentService) Confirm(ctx context.Context, transactionID, providerName string) (*models.Payment, error) {
	return s.reconcile(ctx, transactionID, providerName, payment.Provider.Confirm)
}

// Query re-reads the authoritative status from the provider. Safe under
// duplicate and reordered invocations: the remote status, not the caller's
// claim, decides the outcome.
func (s *PaymentService) Query(ctx context.Context, transactionID, providerName string) (*models.Payment, error) {
	return s.reconcile(ctx, transactionID, providerName, payment.Provider.Query)
}

func (s *PaymentService) reconcile(ctx context.Context, transactionID, providerName string, call func(payment.Provider, context.Context, string) (*payment.Result, error)) (*models.Payment, error) {
	prov, err := s.Providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	pay, err := s.Repo.GetPaymentByTransaction(ctx, transactionID, prov.Name())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result, err := call(prov, ctx, transactionID)
	if err != nil {
		return nil, err
	}

	pay.Status = string(result.Status)
	pay.RawResponse = result.RawResponse
	if err := s.Repo.SavePayment(ctx, pay); err != nil {
		return nil, err
	}

	if result.Status == payment.StatusSuccess {
		if _, err := s.Orders.Settle(ctx, pay.OrderID); err != nil {
			// Provider says paid but the stock is gone: record the split
			// explicitly instead of leaving a success/pending pair. A later
			// query retries settlement.
			pay.Status = models.PaymentStatusSettlementFailed
			if saveErr := s.Repo.SavePayment(ctx, pay); saveErr != nil {
				return nil, saveErr
			}
			return nil, err
		}
	}

	publish(ctx, s.Events, TopicPaymentEvents, transactionID, map[string]any{
		"type":       "payment_" + pay.Status,
		"payment_id": pay.ID,
		"order_id":   pay.OrderID,
		"provider":   prov.Name(),
	})

	return pay, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID, userID uint) (*models.Payment, error) {
	pay, err := s.Repo.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment %d", ErrNotFound, paymentID)
		}
		return nil, err
	}

	order, err := s.Repo.GetOrder(ctx, pay.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: payment %d", ErrForbidden, paymentID)
	}

	return pay, nil
}

// HandleWebhook reconciles an inbound provider notification. A supplied
// signature must verify; a payload with no extractable transaction id is
// ignored, not an error, since providers send event types this system does
// not care about.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, payload []byte, signature string) (*models.Payment, error) {
	prov, err := s.Providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	if signature != "" && !prov.VerifySignature(payload, signature) {
		return nil, fmt.Errorf("%w: %s webhook", ErrInvalidSignature, prov.Name())
	}

	transactionID := prov.ExtractTransactionID(payload)
	if transactionID == "" {
		return nil, nil
	}

	logging.FromContext(ctx).Info("webhook accepted", "provider", prov.Name(), "transaction_id", transactionID)
	return s.Query(ctx, transactionID, providerName)
}
