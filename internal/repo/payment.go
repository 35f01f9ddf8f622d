package repo

import (
	"context"

	"github.com/Skotchmaster/checkout/internal/models"
)

func (r *GormRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB.WithContext(ctx).Create(payment).Error
}

func (r *GormRepo) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	payment := models.Payment{}
	if err := r.DB.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormRepo) GetPaymentByTransaction(ctx context.Context, transactionID, provider string) (*models.Payment, error) {
	payment := models.Payment{}
	err := r.DB.WithContext(ctx).
		Where("transaction_id = ? AND provider = ?", transactionID, provider).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormRepo) SavePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB.WithContext(ctx).Save(payment).Error
}
