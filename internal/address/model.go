package address

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Address is a saved shipping address. At most one address per user is the default.
type Address struct {
	ID        string            `json:"id"`
	Type      enums.AddressType `json:"type"`
	IsDefault bool              `json:"is_default"`
	types.Address
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the caller-editable fields.
type Input struct {
	Type      enums.AddressType
	IsDefault bool
	Postal    types.Address
}

type defaultFlag struct {
	IsDefault bool      `json:"is_default"`
	UpdatedAt time.Time `json:"updated_at"`
}
