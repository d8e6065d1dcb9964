// Package poll waits for a condition with a fixed interval and an upper
// bound, on top of apimachinery's wait helpers.
package poll

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrTimeout is returned when the condition is still false at the deadline.
var ErrTimeout = errors.New("timed out waiting for condition")

// Condition reports whether the wait is over. A non-nil error stops polling
// and is returned as is.
type Condition func(ctx context.Context) (bool, error)

// Until checks fn immediately and then every interval until it returns true,
// returns an error, the timeout elapses (ErrTimeout) or ctx is done
// (ctx.Err()).
func Until(ctx context.Context, interval, timeout time.Duration, fn Condition) error {
	if interval <= 0 {
		interval = time.Second
	}
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, wait.ConditionWithContextFunc(fn))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if wait.Interrupted(err) {
		return ErrTimeout
	}
	return err
}
