package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/mykafka"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/transport"
)

// OrderService owns the order state machine: pending → paid via settlement,
// pending/paid → canceled, both terminal.
type OrderService struct {
	Repo   *repo.GormRepo
	Events mykafka.Publisher
}

// errSettleLost: another settlement claimed the order while this one ran.
var errSettleLost = errors.New("settlement lost the status claim")

func (s *OrderService) Create(ctx context.Context, userID uint, req transport.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrInvalidState)
	}

	var items []models.OrderItem
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrInvalidState)
		}

		product, err := s.Repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
			}
			return nil, err
		}
		if product.Status != models.ProductStatusActive {
			return nil, fmt.Errorf("%w: product %d is not active", ErrInvalidState, it.ProductID)
		}
		if product.Stock < it.Quantity {
			return nil, fmt.Errorf("%w: product %d: available %d, requested %d",
				ErrInsufficientStock, it.ProductID, product.Stock, it.Quantity)
		}

		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: product.Price,
			Subtotal:  Subtotal(it.Quantity, product.Price),
		})
	}

	order := &models.Order{
		UserID:      userID,
		Status:      models.OrderStatusPending,
		TotalAmount: decimal.Zero,
		Items:       items,
	}

	// Items get their ids inside the transaction, then the total is computed
	// over them in id order and stored before commit. Stock is validated but
	// not decremented here; the decrement belongs to settlement.
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		order.TotalAmount = OrderTotal(order.Items)
		return tx.UpdateOrderTotal(ctx, order.ID, order.TotalAmount)
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicOrderEvents, strconv.FormatUint(uint64(order.ID), 10), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalAmount,
	})

	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.Repo.GetUserOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, userID, offset, limit)
}

// Cancel is legal from pending or paid; no refund or stock restore is
// modeled for the paid case.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.Repo.GetUserOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusPaid {
		return nil, fmt.Errorf("%w: order %d cannot be canceled from status %q", ErrInvalidState, orderID, order.Status)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, orderID, models.OrderStatusCanceled); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatusCanceled

	publish(ctx, s.Events, TopicOrderEvents, strconv.FormatUint(uint64(orderID), 10), map[string]any{
		"type":     "order_canceled",
		"order_id": orderID,
		"user_id":  userID,
	})

	return order, nil
}

// Settle marks the order paid and performs the real stock decrement, all in
// one transaction: either every item is decremented and the order becomes
// paid, or nothing changes. Calling Settle on an already-paid order is a
// no-op, which is what makes the payment ledger's repeated confirmations
// safe.
func (s *OrderService) Settle(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusPaid:
		return order, nil
	case models.OrderStatusCanceled:
		return nil, fmt.Errorf("%w: order %d is canceled", ErrInvalidState, orderID)
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		// The conditional claim serializes concurrent settlements on the
		// order row; the loser sees zero rows and backs off.
		won, err := tx.ClaimOrderStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusPaid)
		if err != nil {
			return err
		}
		if !won {
			return errSettleLost
		}

		for _, item := range order.Items {
			_, ok, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrNotFound, item.ProductID)
				}
				return err
			}
			if !ok {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
			}
		}
		return nil
	})
	if errors.Is(err, errSettleLost) {
		fresh, ferr := s.Repo.GetOrder(ctx, orderID)
		if ferr != nil {
			return nil, ferr
		}
		if fresh.Status == models.OrderStatusPaid {
			return fresh, nil
		}
		return nil, fmt.Errorf("%w: order %d is %s", ErrInvalidState, orderID, fresh.Status)
	}
	if err != nil {
		return nil, err
	}
	order.Status = models.OrderStatusPaid

	publish(ctx, s.Events, TopicOrderEvents, strconv.FormatUint(uint64(orderID), 10), map[string]any{
		"type":     "order_paid",
		"order_id": orderID,
	})

	return order, nil
}
