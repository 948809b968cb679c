package docsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/writequeue"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type enqueuer interface {
	Enqueue(job writequeue.Job) error
	Pending(key string) bool
}

type notifier interface {
	Notify(ctx context.Context, userID string, n notifications.Notification) (*notifications.Notification, error)
}

// Write describes a background write made on behalf of a user.
type Write struct {
	UserID string
	// Key is the document path being written.
	Key  string
	Kind string
	Run  func(ctx context.Context) error
	// Failure is what the user is told when the write is abandoned. Kind
	// defaults to write_failed.
	Failure notifications.Notification
	Fields  map[string]any
}

// Writer submits writes without waiting for them. Persistence failures never
// reach the caller; they are reported on the user's notification channel.
type Writer struct {
	queue    enqueuer
	notifier notifier
	logg     *logger.Logger
}

func NewWriter(queue enqueuer, notifier notifier, logg *logger.Logger) (*Writer, error) {
	if queue == nil {
		return nil, fmt.Errorf("write queue required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Writer{queue: queue, notifier: notifier, logg: logg}, nil
}

// Submit enqueues w. The returned error only reports that the queue refused
// the write (full or shut down).
func (w *Writer) Submit(ctx context.Context, write Write) error {
	if write.Run == nil {
		return fmt.Errorf("write %q has no run func", write.Key)
	}
	fields := map[string]any{"user_id": write.UserID}
	for k, v := range write.Fields {
		fields[k] = v
	}
	job := writequeue.Job{
		Key:    write.Key,
		Kind:   write.Kind,
		Fields: fields,
		Run:    write.Run,
		OnFailure: func(ctx context.Context, err error) {
			w.reportFailure(ctx, write, err)
		},
	}
	if err := w.queue.Enqueue(job); err != nil {
		w.logg.Error(w.logg.WithFields(ctx, fields), "write not accepted", err)
		return err
	}
	return nil
}

// Pending reports whether a write for key has not finished yet.
func (w *Writer) Pending(key string) bool {
	return w.queue.Pending(key)
}

func (w *Writer) reportFailure(ctx context.Context, write Write, cause error) {
	if strings.TrimSpace(write.UserID) == "" {
		return
	}
	n := write.Failure
	if n.Kind == "" {
		n.Kind = enums.NotificationKindWriteFailed
	}
	if n.Title == "" {
		n.Title = "Changes not saved"
	}
	if n.Message == "" {
		n.Message = "We could not save your latest changes. Please try again."
	}
	if n.Reference == "" {
		n.Reference = write.Key
	}
	if _, err := w.notifier.Notify(ctx, write.UserID, n); err != nil {
		w.logg.Error(w.logg.WithField(ctx, "cause", cause.Error()), "write failure notification dropped", err)
	}
}
