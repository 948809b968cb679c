// Package pricing derives cart totals from line items and store settings.
// Everything here is pure: no I/O and no shared state.
package pricing

import (
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the precision of every displayed or persisted amount.
const DisplayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Line is the pricing view of a cart line.
type Line struct {
	ProductID     string
	BasePrice     decimal.Decimal
	DiscountPrice *decimal.Decimal
	Quantity      int
	PricingModel  enums.PricingModel
}

// UnitPrice is the discount price when set and positive, else the base price.
func (l Line) UnitPrice() decimal.Decimal {
	if l.DiscountPrice != nil && l.DiscountPrice.IsPositive() {
		return *l.DiscountPrice
	}
	return l.BasePrice
}

// LineTotal is UnitPrice × Quantity. Non-positive quantities count as zero.
func (l Line) LineTotal() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the breakdown shown on the cart and checkout pages.
type Totals struct {
	Currency        enums.Currency     `json:"currency"`
	PricingModel    enums.PricingModel `json:"pricing_model"`
	ItemCount       int                `json:"item_count"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Tax             decimal.Decimal    `json:"tax"`
	TaxRate         decimal.Decimal    `json:"tax_rate"`
	Shipping        decimal.Decimal    `json:"shipping"`
	Fee             decimal.Decimal    `json:"fee"`
	FeeName         string             `json:"fee_name,omitempty"`
	GrandTotal      decimal.Decimal    `json:"grand_total"`
	MinimumOrder    decimal.Decimal    `json:"minimum_order"`
	CheckoutBlocked bool               `json:"checkout_blocked"`
	Shortfall       decimal.Decimal    `json:"shortfall"`
}

// Compute applies the pricing pipeline:
// subtotal, tax when enabled, flat shipping, the named fee, grand total and
// the B2B minimum-order gate.
func Compute(lines []Line, s settings.StoreSettings, model enums.PricingModel) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.LineTotal())
		count += line.Quantity
	}

	tax := decimal.Zero
	taxRate := decimal.Zero
	if s.TaxEnabled && s.TaxRate.IsPositive() {
		taxRate = s.TaxRate
		tax = subtotal.Mul(s.TaxRate).Div(hundred)
	}

	shipping := decimal.Zero
	if s.FlatShippingRate.IsPositive() {
		shipping = s.FlatShippingRate
	}

	fee := decimal.Zero
	feeName := ""
	if s.FeeApplies() {
		fee = s.AdditionalFeeAmount
		feeName = s.AdditionalFeeName
	}

	if model == "" {
		model = enums.PricingModelB2C
	}

	t := Totals{
		Currency:     s.Currency,
		PricingModel: model,
		ItemCount:    count,
		Subtotal:     subtotal,
		Tax:          tax,
		TaxRate:      taxRate,
		Shipping:     shipping,
		Fee:          fee,
		FeeName:      feeName,
		GrandTotal:   subtotal.Add(tax).Add(shipping).Add(fee),
		Shortfall:    decimal.Zero,
	}

	if model == enums.PricingModelB2B {
		t.MinimumOrder = s.B2BMinimumOrder
		if subtotal.LessThan(s.B2BMinimumOrder) {
			t.CheckoutBlocked = true
			t.Shortfall = s.B2BMinimumOrder.Sub(subtotal)
		}
	}
	return t
}

// Display returns the totals rounded half away from zero to two places.
func (t Totals) Display() Totals {
	out := t
	out.Subtotal = Round(t.Subtotal)
	out.Tax = Round(t.Tax)
	out.Shipping = Round(t.Shipping)
	out.Fee = Round(t.Fee)
	out.GrandTotal = Round(t.GrandTotal)
	out.MinimumOrder = Round(t.MinimumOrder)
	out.Shortfall = Round(t.Shortfall)
	return out
}

// Round rounds an amount half away from zero to DisplayPlaces.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// ActiveModel resolves the model that gates checkout. A b2b account claim or
// any b2b product in the cart makes the cart b2b.
func ActiveModel(claim enums.PricingModel, lines []Line) enums.PricingModel {
	if claim == enums.PricingModelB2B {
		return enums.PricingModelB2B
	}
	for _, line := range lines {
		if line.PricingModel == enums.PricingModelB2B {
			return enums.PricingModelB2B
		}
	}
	return enums.PricingModelB2C
}

// LinesFromCart converts a cart snapshot into pricing lines.
func LinesFromCart(snap cart.Snapshot) []Line {
	lines := make([]Line, 0, len(snap.Items))
	for _, item := range snap.Items {
		lines = append(lines, Line{
			ProductID:     item.Product.ID,
			BasePrice:     item.Product.BasePrice,
			DiscountPrice: item.Product.DiscountPrice,
			Quantity:      item.Quantity,
			PricingModel:  item.Product.PricingModel,
		})
	}
	return lines
}
