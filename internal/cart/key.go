package cart

import (
	"fmt"
	"net/url"
	"strings"
)

const variantSeparator = "?"

// Product ids are rendered with '%' and '?' escaped so the first separator in
// a rendered key always ends the product id.
var (
	productIDEscaper   = strings.NewReplacer("%", "%25", "?", "%3F")
	productIDUnescaper = strings.NewReplacer("%25", "%", "%3F", "?", "%3f", "?")
)

// ItemKey identifies a cart line: a product plus the full set of chosen
// variant attributes. Two lines with the same product but different variants
// have different keys. ItemKey is comparable and can be used as a map key.
type ItemKey struct {
	productID string
	variants  string
}

// NewItemKey builds the key for productID with the given variant selection.
// Attribute order does not matter.
func NewItemKey(productID string, variants map[string]string) ItemKey {
	return ItemKey{productID: productID, variants: encodeVariants(variants)}
}

func encodeVariants(variants map[string]string) string {
	if len(variants) == 0 {
		return ""
	}
	values := make(url.Values, len(variants))
	for name, value := range variants {
		values.Set(name, value)
	}
	// Encode sorts by attribute name and escapes '&', '=' and '?'.
	return values.Encode()
}

// ProductID returns the product half of the key.
func (k ItemKey) ProductID() string { return k.productID }

// IsZero reports whether the key is unset.
func (k ItemKey) IsZero() bool { return k.productID == "" && k.variants == "" }

// Variants decodes the variant selection carried by the key.
func (k ItemKey) Variants() map[string]string {
	if k.variants == "" {
		return nil
	}
	values, err := url.ParseQuery(k.variants)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for name := range values {
		out[name] = values.Get(name)
	}
	return out
}

// String renders the key. A key without variants is just the product id,
// escaped when it contains '%' or '?'.
func (k ItemKey) String() string {
	id := productIDEscaper.Replace(k.productID)
	if k.variants == "" {
		return id
	}
	return id + variantSeparator + k.variants
}

// ParseItemKey inverts String.
func ParseItemKey(raw string) (ItemKey, error) {
	if raw == "" {
		return ItemKey{}, fmt.Errorf("empty item key")
	}
	idx := strings.Index(raw, variantSeparator)
	if idx < 0 {
		return ItemKey{productID: productIDUnescaper.Replace(raw)}, nil
	}
	productID, encoded := productIDUnescaper.Replace(raw[:idx]), raw[idx+1:]
	if productID == "" {
		return ItemKey{}, fmt.Errorf("item key %q has no product id", raw)
	}
	values, err := url.ParseQuery(encoded)
	if err != nil {
		return ItemKey{}, fmt.Errorf("item key %q: %w", raw, err)
	}
	variants := make(map[string]string, len(values))
	for name := range values {
		variants[name] = values.Get(name)
	}
	return NewItemKey(productID, variants), nil
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKey) UnmarshalText(text []byte) error {
	parsed, err := ParseItemKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
