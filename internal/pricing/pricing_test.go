package pricing

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func scenarioLines() []Line {
	return []Line{
		{ProductID: "a", BasePrice: d("68.00"), Quantity: 1},
		{ProductID: "b", BasePrice: d("45.00"), DiscountPrice: dp("40.00"), Quantity: 1},
	}
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: got %s want %s", name, got.StringFixed(2), want)
	}
}

func TestScenarioFlatShippingNoTax(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{Currency: enums.CurrencyUSD, FlatShippingRate: d("5.00")}
	totals := Compute(scenarioLines(), s, enums.PricingModelB2C).Display()

	assertAmount(t, "subtotal", totals.Subtotal, "108.00")
	assertAmount(t, "tax", totals.Tax, "0")
	assertAmount(t, "shipping", totals.Shipping, "5.00")
	assertAmount(t, "grand total", totals.GrandTotal, "113.00")
	if totals.ItemCount != 2 || totals.CheckoutBlocked {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestScenarioWithTax(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{TaxEnabled: true, TaxRate: d("18"), FlatShippingRate: d("5.00")}
	totals := Compute(scenarioLines(), s, enums.PricingModelB2C).Display()

	assertAmount(t, "tax", totals.Tax, "19.44")
	assertAmount(t, "grand total", totals.GrandTotal, "132.44")
}

func TestTaxDisabledIgnoresRate(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{TaxEnabled: false, TaxRate: d("18")}
	totals := Compute(scenarioLines(), s, "")
	assertAmount(t, "tax", totals.Tax, "0")
	if totals.PricingModel != enums.PricingModelB2C {
		t.Fatalf("empty model should default to b2c, got %s", totals.PricingModel)
	}
}

func TestFeeRequiresNameAndPositiveAmount(t *testing.T) {
	t.Parallel()

	lines := scenarioLines()
	unnamed := Compute(lines, settings.StoreSettings{AdditionalFeeAmount: d("3")}, "")
	assertAmount(t, "unnamed fee", unnamed.Fee, "0")

	named := Compute(lines, settings.StoreSettings{AdditionalFeeName: "Handling", AdditionalFeeAmount: d("3")}, "")
	assertAmount(t, "fee", named.Fee, "3")
	assertAmount(t, "grand total", named.GrandTotal, "111")
	if named.FeeName != "Handling" {
		t.Fatalf("expected fee name, got %q", named.FeeName)
	}

	negative := Compute(lines, settings.StoreSettings{FlatShippingRate: d("-5")}, "")
	assertAmount(t, "negative shipping", negative.Shipping, "0")
}

func TestDiscountPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		discount *decimal.Decimal
		want     string
	}{
		{"no discount", nil, "45"},
		{"discount", dp("40"), "40"},
		{"zero discount ignored", dp("0"), "45"},
		{"discount above base still wins", dp("50"), "50"},
	}
	for _, tc := range cases {
		line := Line{BasePrice: d("45"), DiscountPrice: tc.discount, Quantity: 2}
		assertAmount(t, tc.name, line.UnitPrice(), tc.want)
		totals := Compute([]Line{line}, settings.StoreSettings{}, "")
		assertAmount(t, tc.name+" subtotal", totals.Subtotal, d(tc.want).Mul(decimal.NewFromInt(2)).String())
	}
}

func TestGrandTotalMonotonicInQuantity(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{TaxEnabled: true, TaxRate: d("7.5"), FlatShippingRate: d("4.99"), AdditionalFeeName: "Fee", AdditionalFeeAmount: d("1.25")}
	prev := decimal.NewFromInt(-1)
	for qty := 0; qty <= 20; qty++ {
		lines := []Line{{BasePrice: d("19.99"), Quantity: qty}, {BasePrice: d("3.10"), DiscountPrice: dp("2.95"), Quantity: 1}}
		total := Compute(lines, s, "").GrandTotal
		if !total.GreaterThan(prev) {
			t.Fatalf("grand total not increasing at qty %d: %s <= %s", qty, total, prev)
		}
		prev = total
	}
}

func TestB2BBoundary(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{B2BMinimumOrder: d("15000")}

	atThreshold := Compute([]Line{{BasePrice: d("15000"), Quantity: 1}}, s, enums.PricingModelB2B).Display()
	if atThreshold.CheckoutBlocked {
		t.Fatal("subtotal equal to the minimum must not be blocked")
	}
	assertAmount(t, "shortfall at threshold", atThreshold.Shortfall, "0")

	below := Compute([]Line{{BasePrice: d("14999.99"), Quantity: 1}}, s, enums.PricingModelB2B).Display()
	if !below.CheckoutBlocked {
		t.Fatal("subtotal below the minimum must be blocked")
	}
	assertAmount(t, "shortfall", below.Shortfall, "0.01")
	if below.Shortfall.StringFixed(2) != "0.01" {
		t.Fatalf("unexpected shortfall display %q", below.Shortfall.StringFixed(2))
	}
	assertAmount(t, "minimum", below.MinimumOrder, "15000")
}

func TestB2CIsNeverGated(t *testing.T) {
	t.Parallel()

	s := settings.StoreSettings{B2BMinimumOrder: d("15000")}
	totals := Compute([]Line{{BasePrice: d("1"), Quantity: 1}}, s, enums.PricingModelB2C)
	if totals.CheckoutBlocked || !totals.Shortfall.IsZero() {
		t.Fatalf("b2c cart gated: %+v", totals)
	}
}

func TestEmptyCartTotals(t *testing.T) {
	t.Parallel()

	totals := Compute(nil, settings.StoreSettings{FlatShippingRate: d("5")}, "")
	assertAmount(t, "subtotal", totals.Subtotal, "0")
	assertAmount(t, "grand total", totals.GrandTotal, "5")
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	assertAmount(t, "half up", Round(d("1.005")), "1.01")
	assertAmount(t, "below half", Round(d("1.0049")), "1")
	assertAmount(t, "negative", Round(d("-1.005")), "-1.01")
}

func TestActiveModel(t *testing.T) {
	t.Parallel()

	b2c := []Line{{PricingModel: enums.PricingModelB2C}}
	mixed := []Line{{PricingModel: enums.PricingModelB2C}, {PricingModel: enums.PricingModelB2B}}

	if ActiveModel("", b2c) != enums.PricingModelB2C {
		t.Fatal("expected b2c")
	}
	if ActiveModel(enums.PricingModelB2B, b2c) != enums.PricingModelB2B {
		t.Fatal("b2b claim should win")
	}
	if ActiveModel(enums.PricingModelB2C, mixed) != enums.PricingModelB2B {
		t.Fatal("b2b product should make the cart b2b")
	}
}

func TestLinesFromCart(t *testing.T) {
	t.Parallel()

	store := cart.NewStore()
	p := product.Product{ID: "b", BasePrice: d("45"), DiscountPrice: dp("40"), PricingModel: enums.PricingModelB2B}
	store.Add(p, nil)
	store.Add(p, nil)

	lines := LinesFromCart(store.Snapshot())
	if len(lines) != 1 || lines[0].Quantity != 2 || lines[0].PricingModel != enums.PricingModelB2B {
		t.Fatalf("unexpected lines %+v", lines)
	}
	assertAmount(t, "line total", lines[0].LineTotal(), "80")
}
