package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// OverridePath is the document that may override configured settings.
const OverridePath = "settings/store"

const defaultCacheTTL = 30 * time.Second

// StoreSettings drives pricing. Read-only at runtime.
type StoreSettings struct {
	Currency            enums.Currency  `json:"currency"`
	TaxEnabled          bool            `json:"tax_enabled"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	FlatShippingRate    decimal.Decimal `json:"flat_shipping_rate"`
	AdditionalFeeName   string          `json:"additional_fee_name,omitempty"`
	AdditionalFeeAmount decimal.Decimal `json:"additional_fee_amount"`
	B2BMinimumOrder     decimal.Decimal `json:"b2b_minimum_order"`
}

// FeeApplies reports whether the additional fee is charged.
func (s StoreSettings) FeeApplies() bool {
	return strings.TrimSpace(s.AdditionalFeeName) != "" && s.AdditionalFeeAmount.IsPositive()
}

// FromConfig maps environment configuration onto StoreSettings.
func FromConfig(cfg config.StoreConfig) (StoreSettings, error) {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return StoreSettings{}, err
	}
	return StoreSettings{
		Currency:            currency,
		TaxEnabled:          cfg.TaxEnabled,
		TaxRate:             cfg.TaxRate,
		FlatShippingRate:    cfg.FlatShippingRate,
		AdditionalFeeName:   strings.TrimSpace(cfg.AdditionalFeeName),
		AdditionalFeeAmount: cfg.AdditionalFeeAmount,
		B2BMinimumOrder:     cfg.B2BMinimumOrder,
	}, nil
}

// override holds the fields an operator may change through the settings document.
type override struct {
	Currency            *enums.Currency  `json:"currency"`
	TaxEnabled          *bool            `json:"tax_enabled"`
	TaxRate             *decimal.Decimal `json:"tax_rate"`
	FlatShippingRate    *decimal.Decimal `json:"flat_shipping_rate"`
	AdditionalFeeName   *string          `json:"additional_fee_name"`
	AdditionalFeeAmount *decimal.Decimal `json:"additional_fee_amount"`
	B2BMinimumOrder     *decimal.Decimal `json:"b2b_minimum_order"`
}

func (o override) apply(base StoreSettings) (StoreSettings, error) {
	out := base
	if o.Currency != nil {
		if !o.Currency.IsValid() {
			return base, fmt.Errorf("invalid currency %q", *o.Currency)
		}
		out.Currency = *o.Currency
	}
	if o.TaxEnabled != nil {
		out.TaxEnabled = *o.TaxEnabled
	}
	for _, d := range []*decimal.Decimal{o.TaxRate, o.FlatShippingRate, o.AdditionalFeeAmount, o.B2BMinimumOrder} {
		if d != nil && d.IsNegative() {
			return base, errors.New("settings amounts must be non-negative")
		}
	}
	if o.TaxRate != nil {
		out.TaxRate = *o.TaxRate
	}
	if o.FlatShippingRate != nil {
		out.FlatShippingRate = *o.FlatShippingRate
	}
	if o.AdditionalFeeName != nil {
		out.AdditionalFeeName = strings.TrimSpace(*o.AdditionalFeeName)
	}
	if o.AdditionalFeeAmount != nil {
		out.AdditionalFeeAmount = *o.AdditionalFeeAmount
	}
	if o.B2BMinimumOrder != nil {
		out.B2BMinimumOrder = *o.B2BMinimumOrder
	}
	return out, nil
}

// Provider serves the effective store settings.
type Provider struct {
	base     StoreSettings
	docs     docstore.Reader
	logg     *logger.Logger
	cacheTTL time.Duration
	now      func() time.Time

	mu        sync.Mutex
	cached    StoreSettings
	fetchedAt time.Time
}

// NewProvider builds a provider. docs may be nil, in which case the configured
// settings are always returned.
func NewProvider(base StoreSettings, docs docstore.Reader, logg *logger.Logger) *Provider {
	return &Provider{
		base:     base,
		docs:     docs,
		logg:     logg,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
	}
}

// Static returns a provider that never consults the document store.
func Static(s StoreSettings) *Provider {
	return NewProvider(s, nil, nil)
}

// Current returns the configured settings merged with the override document.
// Read failures fall back to the last good value.
func (p *Provider) Current(ctx context.Context) StoreSettings {
	if p.docs == nil {
		return p.base
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !p.fetchedAt.IsZero() && now.Sub(p.fetchedAt) < p.cacheTTL {
		return p.cached
	}

	current, err := p.load(ctx)
	if err != nil {
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "store settings override ignored")
		}
		if p.fetchedAt.IsZero() {
			return p.base
		}
		return p.cached
	}
	p.cached = current
	p.fetchedAt = now
	return current
}

func (p *Provider) load(ctx context.Context) (StoreSettings, error) {
	doc, err := p.docs.Get(ctx, OverridePath)
	if errors.Is(err, docstore.ErrNotFound) {
		return p.base, nil
	}
	if err != nil {
		return p.base, err
	}
	var o override
	if err := doc.Decode(&o); err != nil {
		return p.base, fmt.Errorf("decode settings override: %w", err)
	}
	return o.apply(p.base)
}
