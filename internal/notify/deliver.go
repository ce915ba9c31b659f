package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClaimLease is how long a worker holds a notification while dispatching
// it. A worker that dies mid-dispatch blocks retries for at most this long.
const ClaimLease = 2 * time.Minute

// ErrClaimed is returned by Deliver when the notification is already
// dispatched or another worker holds it.
var ErrClaimed = errors.New("notification claimed elsewhere")

// Outbox is the part of the notification store that delivery needs.
type Outbox interface {
	ClaimDispatch(ctx context.Context, id primitive.ObjectID, now, until time.Time) (bool, error)
	ReleaseDispatch(ctx context.Context, id primitive.ObjectID) error
	MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// Deliver claims n, hands it to d and marks it dispatched. Only the worker
// holding the claim dispatches, so a recorded notification is published
// once no matter how many workers race for it. A failed dispatch releases
// the claim for the next attempt.
func Deliver(ctx context.Context, outbox Outbox, d Dispatcher, n models.Notification) error {
	now := time.Now().UTC()
	ok, err := outbox.ClaimDispatch(ctx, n.ID, now, now.Add(ClaimLease))
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !ok {
		return ErrClaimed
	}

	if err := d.Dispatch(ctx, n); err != nil {
		if rerr := outbox.ReleaseDispatch(ctx, n.ID); rerr != nil {
			return errors.Join(err, fmt.Errorf("release: %w", rerr))
		}
		return err
	}
	if _, err := outbox.MarkDispatched(ctx, n.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}
