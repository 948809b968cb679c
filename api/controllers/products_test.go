package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubProducts struct {
	items     []product.Product
	listInput product.ListInput
	reviewed  *product.ReviewInput
}

func (s *stubProducts) List(_ context.Context, input product.ListInput) ([]product.Product, error) {
	s.listInput = input
	return s.items, nil
}

func (s *stubProducts) Get(_ context.Context, id string) (*product.Product, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProducts) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	for i := range s.items {
		if s.items[i].Slug == slug {
			return &s.items[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProducts) Upsert(_ context.Context, p product.Product) (*product.Product, error) {
	return &p, nil
}

func (s *stubProducts) ListReviews(context.Context, string) ([]product.Review, product.RatingSummary, error) {
	return nil, product.RatingSummary{}, nil
}

func (s *stubProducts) AddReview(_ context.Context, userID, productID string, input product.ReviewInput) (*product.Review, error) {
	s.reviewed = &input
	return &product.Review{ID: "r1", ProductID: productID, UserID: userID, Rating: input.Rating, Body: input.Body}, nil
}

func TestListProductsParsesFilters(t *testing.T) {
	svc := &stubProducts{}
	resp := httptest.NewRecorder()
	ListProducts(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=Mugs&pricing_model=b2b", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if svc.listInput.Category != "Mugs" || svc.listInput.PricingModel != enums.PricingModelB2B {
		t.Fatalf("unexpected input %+v", svc.listInput)
	}

	resp = httptest.NewRecorder()
	ListProducts(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?pricing_model=wholesale", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductFallsBackToSlug(t *testing.T) {
	svc := &stubProducts{items: []product.Product{{ID: "p1", Slug: "blue-mug", Name: "Blue Mug"}}}
	req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/products/blue-mug", nil), map[string]string{"productId": "blue-mug"})
	resp := httptest.NewRecorder()
	GetProduct(svc, testLogger())(resp, req)
	if got := decodeData[product.Product](t, resp); got.ID != "p1" {
		t.Fatalf("expected slug lookup, got %+v", got)
	}
}

func TestAddProductReviewRequiresUserAndValidBody(t *testing.T) {
	svc := &stubProducts{}
	handler := AddProductReview(svc, testLogger())

	req := withParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":5,"body":"great"}`)), map[string]string{"productId": "p1"})
	resp := httptest.NewRecorder()
	handler(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":7,"body":"great"}`))
	req = withParams(req.WithContext(middleware.WithUserID(req.Context(), "u1")), map[string]string{"productId": "p1"})
	resp = httptest.NewRecorder()
	handler(resp, req)
	if resp.Code != http.StatusBadRequest || decodeErrorCode(t, resp) != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4,"body":"  solid  "}`))
	req = withParams(req.WithContext(middleware.WithUserID(req.Context(), "u1")), map[string]string{"productId": "p1"})
	resp = httptest.NewRecorder()
	handler(resp, req)
	if resp.Code != http.StatusCreated || svc.reviewed == nil || svc.reviewed.Body != "solid" {
		t.Fatalf("expected created review, got %d %+v", resp.Code, svc.reviewed)
	}
}
