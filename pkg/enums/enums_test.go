package enums

import "testing"

func TestOrderStatusTransitionsOnlyForward(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusProcessing, false},
		{OrderStatus("lost"), OrderStatusShipped, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParsePricingModelDefaultsToB2C(t *testing.T) {
	model, err := ParsePricingModel("")
	if err != nil || model != PricingModelB2C {
		t.Fatalf("expected b2c default, got %q err=%v", model, err)
	}
	if _, err := ParsePricingModel("wholesale"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

func TestParseDocStoreDriverNormalizes(t *testing.T) {
	driver, err := ParseDocStoreDriver(" Postgres ")
	if err != nil || driver != DocStoreDriverPostgres {
		t.Fatalf("expected postgres, got %q err=%v", driver, err)
	}
	if !driver.IsSQL() || DocStoreDriverMongo.IsSQL() {
		t.Fatalf("unexpected IsSQL result")
	}
}

func TestParseCurrencyNormalizesCase(t *testing.T) {
	c, err := ParseCurrency("eur")
	if err != nil || c != CurrencyEUR {
		t.Fatalf("expected EUR, got %q err=%v", c, err)
	}
	if _, err := ParseCurrency("BTC"); err == nil {
		t.Fatalf("expected BTC to be rejected")
	}
}
