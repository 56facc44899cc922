package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

// Execute runs fn in a new goroutine that recovers and logs panics together
// with the goroutine name and a stack trace. The returned channel is closed
// once fn has returned, whether normally or by panic.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logCtx := ctx
				if ctx.Err() != nil {
					logCtx = context.Background()
				}
				logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
					"panic_info", fmt.Sprintf("%v", r),
					"stacktrace", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
	return done
}
