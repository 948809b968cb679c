package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/docsync"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type pendingChecker interface {
	Pending(userID, orderID string) bool
}

type pendingOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []orders.Order{}
		}
		responses.WriteSuccess(w, list)
	}
}

// GetOrder returns the order. While its write is still queued the answer is
// 202 with status "pending"; an unknown id is 404.
func GetOrder(svc orders.Service, pending pendingChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		orderID := chi.URLParam(r, "orderId")

		order, err := svc.Get(r.Context(), userID, orderID)
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) && pending != nil {
			if pending.Pending(userID, orderID) {
				responses.WriteSuccessStatus(w, http.StatusAccepted, pendingOrderResponse{OrderID: orderID, Status: "pending"})
				return
			}
			// The write may have finished between the read and the pending check.
			order, err = svc.Get(r.Context(), userID, orderID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// WatchOrder streams loading/loaded/errored states of one order over a
// websocket.
func WatchOrder(src docsync.Source, opts docsync.Options, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		sub, err := docsync.WatchDocument[orders.Order](r.Context(), src, orders.DocumentPath(userID, chi.URLParam(r, "orderId")), opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		streamStates(w, r, logg, sub)
	}
}
