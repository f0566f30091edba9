package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

// WaitForShutdown blocks until SIGINT/SIGTERM arrives and then calls fn with a
// context bounded by the shutdown timeout.
func WaitForShutdown(fn func(ctx context.Context)) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)
	<-ch

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	fn(ctx)
}
