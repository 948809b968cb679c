package notifications

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Notification is an entry on a user's side-channel: order confirmations,
// status changes and background write failures.
type Notification struct {
	ID        string                 `json:"id"`
	Kind      enums.NotificationKind `json:"kind"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Reference string                 `json:"reference,omitempty"`
	Link      string                 `json:"link,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

type readUpdate struct {
	Read   bool      `json:"read"`
	ReadAt time.Time `json:"read_at"`
}
