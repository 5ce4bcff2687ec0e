// Package goroutine provides utilities for safely launching goroutines with panic recovery.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"vulntrack/internal/shared/logger"
)

// SafeGo launches a goroutine with panic recovery. A panic is logged with
// its stack trace instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverAndLog(log, name)
		fn()
	}()
}

// SafeGoDetached is SafeGo for background work spawned from a request. The
// goroutine keeps ctx's values but not its cancellation, and gets its own
// timeout so an abandoned request does not abort an already issued write.
func SafeGoDetached(ctx context.Context, log logger.Interface, name string, timeout time.Duration, fn func(ctx context.Context)) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer cancel()
		defer recoverAndLog(log, name)
		fn(detached)
	}()
}

func recoverAndLog(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
