package product

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/docstore/docstoretest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(docstoretest.New(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestUnitPricePrefersDiscount(t *testing.T) {
	p := Product{BasePrice: dec("60"), DiscountPrice: decPtr("54")}
	if !p.UnitPrice().Equal(dec("54")) || !p.HasDiscount() {
		t.Fatalf("expected discount price, got %s", p.UnitPrice())
	}
	p.DiscountPrice = nil
	if !p.UnitPrice().Equal(dec("60")) || p.HasDiscount() {
		t.Fatalf("expected base price, got %s", p.UnitPrice())
	}
	p.DiscountPrice = decPtr("0")
	if !p.UnitPrice().Equal(dec("60")) {
		t.Fatalf("zero discount should fall back to base, got %s", p.UnitPrice())
	}
}

func TestUpsertGetAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	mug, err := svc.Upsert(ctx, Product{Name: "Ceramic Mug", Category: "kitchen", BasePrice: dec("12.50")})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if mug.ID == "" || mug.Slug != "ceramic-mug" || mug.PricingModel != enums.PricingModelB2C {
		t.Fatalf("unexpected defaults %+v", mug)
	}
	if _, err := svc.Upsert(ctx, Product{ID: "pallet", Name: "Bulk Pallet", Category: "wholesale", PricingModel: enums.PricingModelB2B, BasePrice: dec("9000")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := svc.Get(ctx, mug.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.BasePrice.Equal(dec("12.5")) {
		t.Fatalf("price not preserved: %s", got.BasePrice)
	}

	bySlug, err := svc.GetBySlug(ctx, "ceramic-mug")
	if err != nil || bySlug.ID != mug.ID {
		t.Fatalf("get by slug: %+v err=%v", bySlug, err)
	}

	all, err := svc.List(ctx, ListInput{})
	if err != nil || len(all) != 2 || all[0].Name != "Bulk Pallet" {
		t.Fatalf("unexpected list %+v err=%v", all, err)
	}
	b2b, err := svc.List(ctx, ListInput{PricingModel: enums.PricingModelB2B})
	if err != nil || len(b2b) != 1 || b2b[0].ID != "pallet" {
		t.Fatalf("unexpected b2b list %+v err=%v", b2b, err)
	}
	kitchen, err := svc.List(ctx, ListInput{Category: "KITCHEN"})
	if err != nil || len(kitchen) != 1 {
		t.Fatalf("category filter should be case-insensitive: %+v err=%v", kitchen, err)
	}
}

func TestGetMissingProduct(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "nope")
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = svc.Get(context.Background(), " ")
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	cases := []Product{
		{Name: ""},
		{Name: "x", PricingModel: "wholesale"},
		{Name: "x", BasePrice: dec("-1")},
		{Name: "x", BasePrice: dec("1"), DiscountPrice: decPtr("-1")},
	}
	for _, p := range cases {
		if _, err := svc.Upsert(ctx, p); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", p, err)
		}
	}
}

func TestReviews(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	p, err := svc.Upsert(ctx, Product{Name: "Lamp", BasePrice: dec("40")})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.AddReview(ctx, "", p.ID, ReviewInput{Rating: 5, Body: "great"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.AddReview(ctx, "u1", p.ID, ReviewInput{Rating: 6, Body: "great"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected rating validation, got %v", err)
	}
	if _, err := svc.AddReview(ctx, "u1", "missing", ReviewInput{Rating: 4, Body: "ok"}); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	for _, rating := range []int{5, 4, 4} {
		if _, err := svc.AddReview(ctx, "u1", p.ID, ReviewInput{Rating: rating, Body: "nice lamp"}); err != nil {
			t.Fatalf("add review: %v", err)
		}
	}

	reviews, summary, err := svc.ListReviews(ctx, p.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 3 || summary.Count != 3 || !summary.Average.Equal(dec("4.3")) {
		t.Fatalf("unexpected reviews %d summary %+v", len(reviews), summary)
	}
}

type failingRepo struct{ repository }

func (failingRepo) List(context.Context) ([]Product, error) { return nil, errors.New("offline") }

func TestListWrapsStoreFailures(t *testing.T) {
	svc, err := NewService(failingRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.List(context.Background(), ListInput{}); !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected nil repository error")
	}
}
