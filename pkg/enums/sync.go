package enums

// SyncStatus is the lifecycle of a remote document subscription.
type SyncStatus string

const (
	SyncStatusLoading SyncStatus = "loading"
	SyncStatusLoaded  SyncStatus = "loaded"
	SyncStatusErrored SyncStatus = "errored"
)

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// CheckoutState is the lifecycle of a single place-order attempt.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "idle"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateSubmitted  CheckoutState = "submitted"
)

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}
