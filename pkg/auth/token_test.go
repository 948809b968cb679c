package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront-idp"}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, 30*time.Minute, IdentityPayload{
		UserID:       "uid-123",
		Email:        "buyer@example.com",
		PricingModel: enums.PricingModelB2B,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID() != "uid-123" {
		t.Fatalf("expected subject uid-123, got %q", claims.UserID())
	}
	if claims.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.PricingModel != enums.PricingModelB2B {
		t.Fatalf("unexpected pricing model %q", claims.PricingModel)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), 10*time.Minute, IdentityPayload{UserID: "uid"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: cfg.Issuer}, token)
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
	if got := ReasonForError(err); got != ReasonInvalidCredential {
		t.Fatalf("expected invalid credential reason, got %q", got)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), 15*time.Minute, IdentityPayload{UserID: "uid"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiration error, got %v", err)
	}
	if got := ReasonForError(err); got != ReasonTokenExpired {
		t.Fatalf("expected expired reason, got %q", got)
	}
}

func TestParseAccessTokenMalformed(t *testing.T) {
	_, err := ParseAccessToken(testJWTConfig(), "not-a-token")
	if err == nil {
		t.Fatal("expected malformed token error")
	}
	if got := ReasonForError(err); got != ReasonInvalidToken {
		t.Fatalf("expected invalid token reason, got %q", got)
	}
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), time.Minute, IdentityPayload{}); err == nil {
		t.Fatal("expected missing user id error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), time.Minute, IdentityPayload{UserID: "u", PricingModel: "wholesale"}); err == nil {
		t.Fatal("expected invalid pricing model error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), 0, IdentityPayload{UserID: "u"}); err == nil {
		t.Fatal("expected ttl error")
	}
}

func TestMessageForReason(t *testing.T) {
	if got := MessageForReason(ReasonUserNotFound); got != "No account found with this email." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageForReason("auth/something-new"); got != defaultReasonMessage {
		t.Fatalf("unknown reasons should use the default message, got %q", got)
	}
	if ReasonForError(nil) != "" {
		t.Fatal("nil error should have no reason")
	}
}
