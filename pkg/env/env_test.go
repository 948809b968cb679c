package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_BLANK", "   ")
	if got := Get("STOREFRONT_TEST_BLANK", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("STOREFRONT_TEST_SET", "value")
	if got := Get("STOREFRONT_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestMissing(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_A", "a")
	t.Setenv("STOREFRONT_TEST_B", "")
	missing := Missing("STOREFRONT_TEST_A", "STOREFRONT_TEST_B")
	if len(missing) != 1 || missing[0] != "STOREFRONT_TEST_B" {
		t.Fatalf("unexpected missing keys %v", missing)
	}
}
