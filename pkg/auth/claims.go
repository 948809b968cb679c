package auth

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityPayload captures the data available when minting a token.
type IdentityPayload struct {
	UserID       string
	Email        string
	PricingModel enums.PricingModel
}

// IdentityClaims is the token issued by the identity provider. The stable user
// id travels in the subject claim.
type IdentityClaims struct {
	Email        string             `json:"email,omitempty"`
	PricingModel enums.PricingModel `json:"pricing_model,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the stable identifier of the authenticated user.
func (c *IdentityClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
