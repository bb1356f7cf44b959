package ports

import (
	"context"
	"time"
)

// VelocityStore counts click events per origin over a trailing window.
// It is cache-backed so hot click paths never touch the primary store.
type VelocityStore interface {
	// Record increments the origin's counter and returns the count inside the
	// current window, including this event.
	Record(ctx context.Context, originKey string, window time.Duration) (int, error)
}
