package orders

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Order is the immutable record of a placed order. Only Status and UpdatedAt
// change after creation.
type Order struct {
	ID              string             `json:"id"`
	TransactionID   string             `json:"transaction_id"`
	UserID          string             `json:"user_id"`
	Status          enums.OrderStatus  `json:"status"`
	Currency        enums.Currency     `json:"currency"`
	PricingModel    enums.PricingModel `json:"pricing_model"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Tax             decimal.Decimal    `json:"tax"`
	Shipping        decimal.Decimal    `json:"shipping"`
	Fee             decimal.Decimal    `json:"fee"`
	FeeName         string             `json:"fee_name,omitempty"`
	GrandTotal      decimal.Decimal    `json:"grand_total"`
	AddressID       string             `json:"address_id"`
	ShippingAddress types.Address      `json:"shipping_address"`
	Items           []LineItem         `json:"items"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// LineItem is the snapshot of a cart line at order time.
type LineItem struct {
	ProductID string            `json:"product_id"`
	Name      string            `json:"name"`
	Variants  map[string]string `json:"variants,omitempty"`
	Quantity  int               `json:"quantity"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	LineTotal decimal.Decimal   `json:"line_total"`
}

// ItemCount is the total quantity across lines.
func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// statusUpdate is merged onto an existing order document.
type statusUpdate struct {
	Status    enums.OrderStatus `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}
