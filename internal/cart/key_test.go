package cart

import (
	"encoding/json"
	"testing"
)

func TestItemKeyWithoutVariantsIsProductID(t *testing.T) {
	t.Parallel()

	key := NewItemKey("p1", nil)
	if key.String() != "p1" {
		t.Fatalf("expected bare product id, got %q", key.String())
	}
	if key != NewItemKey("p1", map[string]string{}) {
		t.Fatal("nil and empty variants must produce the same key")
	}
}

func TestItemKeyIsIndependentOfVariantOrder(t *testing.T) {
	t.Parallel()

	a := NewItemKey("shirt", map[string]string{"size": "M", "color": "red"})
	b := NewItemKey("shirt", map[string]string{"color": "red", "size": "M"})
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a.String() != "shirt?color=red&size=M" {
		t.Fatalf("unexpected encoding %q", a.String())
	}
}

func TestItemKeyDistinctness(t *testing.T) {
	t.Parallel()

	keys := []ItemKey{
		NewItemKey("shirt", nil),
		NewItemKey("shirt", map[string]string{"size": "M"}),
		NewItemKey("shirt", map[string]string{"size": "L"}),
		NewItemKey("shirt", map[string]string{"size": "M", "color": "red"}),
		NewItemKey("hat", map[string]string{"size": "M"}),
		// separators inside values must not collide with a second attribute
		NewItemKey("shirt", map[string]string{"size": "M&color=red"}),
		NewItemKey("shirt", map[string]string{"a": "1=b"}),
		NewItemKey("shirt", map[string]string{"a=1": "b"}),
	}
	seen := map[ItemKey]int{}
	for i, key := range keys {
		if prev, ok := seen[key]; ok {
			t.Fatalf("keys %d and %d collide: %q", prev, i, key)
		}
		seen[key] = i
	}
}

func TestParseItemKeyRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []ItemKey{
		NewItemKey("p1", nil),
		NewItemKey("p1", map[string]string{"size": "M", "color": "dark blue"}),
		NewItemKey("p?1", map[string]string{"q": "a?b"}),
		NewItemKey("p?1", nil),
		NewItemKey("p?size=M", nil),
		NewItemKey("100%", map[string]string{"size": "M"}),
		NewItemKey("a%3Fb", nil),
	}
	for _, want := range cases {
		got, err := ParseItemKey(want.String())
		if err != nil {
			t.Fatalf("parse %q: %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: %q vs %q", got, want)
		}
	}
	if _, err := ParseItemKey(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := ParseItemKey("?size=M"); err == nil {
		t.Fatal("expected error for key without product id")
	}
}

func TestItemKeyVariants(t *testing.T) {
	t.Parallel()

	key := NewItemKey("p1", map[string]string{"size": "M"})
	if v := key.Variants(); v["size"] != "M" || len(v) != 1 {
		t.Fatalf("unexpected variants %v", v)
	}
	if NewItemKey("p1", nil).Variants() != nil {
		t.Fatal("expected nil variants")
	}
	if key.ProductID() != "p1" {
		t.Fatalf("unexpected product id %q", key.ProductID())
	}
}

func TestItemKeyJSON(t *testing.T) {
	t.Parallel()

	key := NewItemKey("p1", map[string]string{"size": "M"})
	raw, err := json.Marshal(map[string]ItemKey{"key": key})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"key":"p1?size=M"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var decoded struct {
		Key ItemKey `json:"key"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Key != key {
		t.Fatalf("decoded %q, want %q", decoded.Key, key)
	}
}

func TestProductIDWithSeparatorDoesNotCollide(t *testing.T) {
	t.Parallel()

	odd := NewItemKey("p?size=M", nil)
	plain := NewItemKey("p", map[string]string{"size": "M"})
	if odd.String() == plain.String() {
		t.Fatalf("distinct keys render the same: %q", odd)
	}
	parsed, err := ParseItemKey(odd.String())
	if err != nil || parsed.ProductID() != "p?size=M" || parsed.Variants() != nil {
		t.Fatalf("unexpected parse %+v, %v", parsed, err)
	}
	if NewItemKey("mug", nil).String() != "mug" {
		t.Fatal("plain product ids must render unchanged")
	}
}
