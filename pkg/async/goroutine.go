package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/tenantcore/pkg/observability"
)

// SafeGo runs fn on its own goroutine under a timeout derived from parentCtx.
// Panics and returned errors are logged with the task name rather than
// propagated; the returned channel closes when fn is done.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	logger := observability.FromContext(parentCtx).WithField("task", taskName)

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).
					Errorf("panic in background task: %v", r)
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).Error("background task failed")
		}
	}()

	return done
}

// SafeGoDetached is SafeGo for work that must outlive the caller, such as a task
// started from an HTTP request. Context values are kept; cancellation is not.
func SafeGoDetached(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	return SafeGo(context.WithoutCancel(parentCtx), timeout, taskName, fn)
}

// Recover converts a panic in fn into an error.
func Recover(taskName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", taskName, r)
		}
	}()
	return fn()
}
