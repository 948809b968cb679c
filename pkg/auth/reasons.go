package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Provider reason codes surfaced to clients.
const (
	ReasonInvalidEmail       = "auth/invalid-email"
	ReasonUserNotFound       = "auth/user-not-found"
	ReasonWrongPassword      = "auth/wrong-password"
	ReasonInvalidCredential  = "auth/invalid-credential"
	ReasonEmailInUse         = "auth/email-already-in-use"
	ReasonWeakPassword       = "auth/weak-password"
	ReasonTooManyRequests    = "auth/too-many-requests"
	ReasonUserDisabled       = "auth/user-disabled"
	ReasonNetworkFailed      = "auth/network-request-failed"
	ReasonPopupClosed        = "auth/popup-closed-by-user"
	ReasonTokenExpired       = "auth/id-token-expired"
	ReasonInvalidToken       = "auth/invalid-id-token"
	ReasonMissingCredentials = "auth/missing-credentials"
)

const defaultReasonMessage = "Something went wrong. Please try again."

var reasonMessages = map[string]string{
	ReasonInvalidEmail:       "The email address is not valid.",
	ReasonUserNotFound:       "No account found with this email.",
	ReasonWrongPassword:      "Incorrect password. Please try again.",
	ReasonInvalidCredential:  "Invalid email or password.",
	ReasonEmailInUse:         "An account with this email already exists.",
	ReasonWeakPassword:       "Password should be at least 6 characters.",
	ReasonTooManyRequests:    "Too many attempts. Please try again later.",
	ReasonUserDisabled:       "This account has been disabled.",
	ReasonNetworkFailed:      "Network error. Check your connection and try again.",
	ReasonPopupClosed:        "Sign-in was cancelled.",
	ReasonTokenExpired:       "Your session has expired. Please sign in again.",
	ReasonInvalidToken:       "Your session is invalid. Please sign in again.",
	ReasonMissingCredentials: "Please sign in to continue.",
}

// MessageForReason maps a provider reason code to a user-facing message.
// Unknown codes get a generic message.
func MessageForReason(reason string) string {
	if msg, ok := reasonMessages[reason]; ok {
		return msg
	}
	return defaultReasonMessage
}

// ReasonForError classifies a token verification failure.
func ReasonForError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonInvalidCredential
	default:
		return ReasonInvalidToken
	}
}
