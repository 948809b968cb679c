package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

type settingsSource interface {
	Current(ctx context.Context) settings.StoreSettings
}

type settingsResponse struct {
	Currency            enums.Currency  `json:"currency"`
	TaxEnabled          bool            `json:"tax_enabled"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	FlatShippingRate    decimal.Decimal `json:"flat_shipping_rate"`
	AdditionalFeeName   string          `json:"additional_fee_name,omitempty"`
	AdditionalFeeAmount decimal.Decimal `json:"additional_fee_amount"`
	B2BMinimumOrder     decimal.Decimal `json:"b2b_minimum_order"`
}

// GetSettings returns the store settings the pricing engine currently uses.
func GetSettings(src settingsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := src.Current(r.Context())
		responses.WriteSuccess(w, settingsResponse{
			Currency:            s.Currency,
			TaxEnabled:          s.TaxEnabled,
			TaxRate:             s.TaxRate,
			FlatShippingRate:    s.FlatShippingRate,
			AdditionalFeeName:   s.AdditionalFeeName,
			AdditionalFeeAmount: s.AdditionalFeeAmount,
			B2BMinimumOrder:     s.B2BMinimumOrder,
		})
	}
}
