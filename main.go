package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"bandfx/cmd"
	applog "bandfx/internal/log"
	"bandfx/pkg/build"
)

// main is the entry point for bandfx. The program flow is:
//
// 1. Startup:
//   - Initialize build information
//   - Install signal handling
//
// 2. Command:
//   - Parse command line arguments and configuration
//   - Run the selected command until it completes or is interrupted
//
// 3. Shutdown:
//   - Commands release sinks and transports before returning
func main() {
	if err := build.Initialize(); err != nil {
		if !errors.Is(err, build.ErrMissingFlags) {
			applog.Fatalf("%v", err)
		}
		applog.Debugf("development build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		applog.Fatalf("%v", err)
	}
}
