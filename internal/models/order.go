package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderRefunded  OrderStatus = "refunded"
)

// PurchaseOrder records one checkout attempt. TotalCost is always
// UnitPrice*Quantity; the order reaches completed only after its ledger
// transaction committed.
type PurchaseOrder struct {
	ID            string      `json:"id"`
	BuyerID       string      `json:"buyer_id"`
	SellerID      string      `json:"seller_id"`
	ProductID     string      `json:"product_id"`
	Quantity      int         `json:"quantity"`
	UnitPrice     int64       `json:"unit_price"`
	TotalCost     int64       `json:"total_cost"`
	Status        OrderStatus `json:"status"`
	TransactionID *string     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
