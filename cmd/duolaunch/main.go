package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/duolaunch"
)

func main() {
	// SIGINT and SIGTERM end the foreground wait; the session then shuts
	// both processes down before the launcher exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "duolaunch:", err)
	}
	os.Exit(duolaunch.ExitCode(err))
}
