package product

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes catalog reads and customer reviews.
type Service interface {
	List(ctx context.Context, input ListInput) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Upsert(ctx context.Context, p Product) (*Product, error)
	ListReviews(ctx context.Context, productID string) ([]Review, RatingSummary, error)
	AddReview(ctx context.Context, userID, productID string, input ReviewInput) (*Review, error)
}

// ListInput filters the catalog listing. Empty fields match everything.
type ListInput struct {
	Category     string
	Subcategory  string
	PricingModel enums.PricingModel
}

// ReviewInput is the customer-provided part of a review.
type ReviewInput struct {
	Author string
	Rating int
	Body   string
}

type repository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, p Product) error
	ListReviews(ctx context.Context, productID string) ([]Review, error)
	SaveReview(ctx context.Context, rv Review) error
}

type service struct {
	repo repository
	now  func() time.Time
}

// NewService builds the catalog service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]Product, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if input.Category != "" && !strings.EqualFold(p.Category, input.Category) {
			continue
		}
		if input.Subcategory != "" && !strings.EqualFold(p.Subcategory, input.Subcategory) {
			continue
		}
		if input.PricingModel != "" && p.PricingModel != input.PricingModel {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	slug = strings.TrimSpace(slug)
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	for i := range all {
		if all[i].Slug == slug {
			return &all[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

// Upsert writes a catalog entry. Used by catalog import tooling.
func (s *service) Upsert(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(&p); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
	}
	return &p, nil
}

func validateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if p.PricingModel == "" {
		p.PricingModel = enums.PricingModelB2C
	}
	if !p.PricingModel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing model").
			WithDetails(map[string]any{"pricing_model": p.PricingModel})
	}
	if p.BasePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must be non-negative")
	}
	if p.DiscountPrice != nil && p.DiscountPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount price must be non-negative")
	}
	return nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *service) ListReviews(ctx context.Context, productID string) ([]Review, RatingSummary, error) {
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, RatingSummary{}, err
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, RatingSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviews, summarize(reviews), nil
}

func summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{Average: decimal.Zero}
	}
	total := 0
	for _, rv := range reviews {
		total += rv.Rating
	}
	avg := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(reviews)))).Round(1)
	return RatingSummary{Count: len(reviews), Average: avg}
}

func (s *service) AddReview(ctx context.Context, userID, productID string, input ReviewInput) (*Review, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to leave a review")
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review body is required")
	}
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}

	rv := Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Author:    strings.TrimSpace(input.Author),
		Rating:    input.Rating,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveReview(ctx, rv); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save review")
	}
	return &rv, nil
}
