package product

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const (
	collectionProducts = "products"
	collectionReviews  = "reviews"

	MinRating = 1
	MaxRating = 5
)

// Product is a catalog entry. Products are immutable once loaded.
type Product struct {
	ID            string             `json:"id"`
	Slug          string             `json:"slug"`
	Name          string             `json:"name"`
	Category      string             `json:"category"`
	Subcategory   string             `json:"subcategory,omitempty"`
	PricingModel  enums.PricingModel `json:"pricing_model"`
	BasePrice     decimal.Decimal    `json:"base_price"`
	DiscountPrice *decimal.Decimal   `json:"discount_price,omitempty"`
	Offer         string             `json:"offer,omitempty"`
	Features      []string           `json:"features,omitempty"`
	FAQ           []FAQ              `json:"faq,omitempty"`
	PricingTiers  []PricingTier      `json:"pricing_tiers,omitempty"`
	Images        []string           `json:"images,omitempty"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PricingTier is displayed on product pages only. Cart pricing never reads it.
type PricingTier struct {
	Label  string          `json:"label"`
	MinQty int             `json:"min_qty"`
	Price  decimal.Decimal `json:"price"`
}

// UnitPrice is the discount price when one is set and positive, else the base price.
func (p Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.BasePrice
}

// HasDiscount reports whether UnitPrice is the discount price.
func (p Product) HasDiscount() bool {
	return p.DiscountPrice != nil && p.DiscountPrice.IsPositive()
}

// Review is a customer rating stored under products/{id}/reviews.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author,omitempty"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates the reviews of a product.
type RatingSummary struct {
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}
