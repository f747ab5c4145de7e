package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptContext is cancelled on SIGINT or SIGTERM so deferred cleanup in
// the caller still runs. A second signal falls back to the default handler.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
