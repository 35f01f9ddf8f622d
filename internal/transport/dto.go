package transport

import "github.com/shopspring/decimal"

type CreateOrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items"`
}

type InitiatePaymentRequest struct {
	OrderID  uint   `json:"order_id"`
	Provider string `json:"provider"`
}

type ConfirmPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
}

// InitiatePaymentResponse carries whatever the client needs for the external
// redirect; which fields are set depends on the provider.
type InitiatePaymentResponse struct {
	PaymentID     uint   `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	ClientSecret  string `json:"client_secret,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Provider      string `json:"provider"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      string          `json:"status"`
	CategoryID  *uint           `json:"category_id"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"`
	SKU         *string          `json:"sku"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Status      *string          `json:"status"`
	CategoryID  *uint            `json:"category_id"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}
