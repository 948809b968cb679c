package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxReviewBodyLength = 4000

type reviewRequest struct {
	Author string `json:"author" validate:"omitempty,max=80"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Body   string `json:"body" validate:"required"`
}

type reviewsResponse struct {
	Reviews []product.Review      `json:"reviews"`
	Summary product.RatingSummary `json:"summary"`
}

// ListProducts returns the catalog, optionally filtered by category,
// subcategory and pricing_model.
func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		input := product.ListInput{
			Category:    strings.TrimSpace(query.Get("category")),
			Subcategory: strings.TrimSpace(query.Get("subcategory")),
		}
		if raw := strings.TrimSpace(query.Get("pricing_model")); raw != "" {
			model, err := enums.ParsePricingModel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing_model"))
				return
			}
			input.PricingModel = model
		}

		items, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// GetProduct resolves {productId} as an id first and then as a slug.
func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimSpace(chi.URLParam(r, "productId"))
		p, err := svc.Get(r.Context(), ref)
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			p, err = svc.GetBySlug(r.Context(), ref)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, p)
	}
}

func ListProductReviews(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviews, summary, err := svc.ListReviews(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if reviews == nil {
			reviews = []product.Review{}
		}
		responses.WriteSuccess(w, reviewsResponse{Reviews: reviews, Summary: summary})
	}
}

func AddProductReview(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to leave a review"))
			return
		}

		var req reviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.AddReview(r.Context(), userID, chi.URLParam(r, "productId"), product.ReviewInput{
			Author: validators.SanitizeString(req.Author, 80),
			Rating: req.Rating,
			Body:   validators.SanitizeString(req.Body, maxReviewBodyLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
