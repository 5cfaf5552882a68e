// Package async provides safe execution of background tasks.
//
// SafeGo runs a function in its own goroutine with panic recovery, a timeout and error
// logging:
//
//	async.SafeGo(ctx, 30*time.Second, "reconcile", func(ctx context.Context) error {
//		return reconciler.Scan(ctx)
//	})
//
// SafeGoDetached keeps context values but drops cancellation, for fire-and-forget work
// started from a request handler.
package async
