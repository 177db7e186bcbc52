package main

import (
	"context"
	"fmt"
	"os"
)

// runnable is the part of *fx.App used by run.
type runnable interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

// run starts app and blocks until ctx is cancelled or the app asks to shut down.
func run(ctx context.Context, app runnable) error {
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	// Stop hooks apply their own timeouts.
	if err := app.Stop(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
