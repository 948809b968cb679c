package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type placeOrderRequest struct {
	AddressID string `json:"address_id"`
}

// PlaceOrder turns the session cart into an order. It answers 201 as soon as
// the order is queued for persistence; GET /orders/{id} reports 202 until the
// write lands.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			UserID:       middleware.UserIDFromContext(r.Context()),
			SessionID:    middleware.SessionIDFromContext(r.Context()),
			AddressID:    req.AddressID,
			PricingModel: middleware.PricingModelFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Location", receipt.ConfirmationURL)
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
