package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// Version information (this will be replaced during build)
var version = "local-version"

func main() {
	// SIGINT/SIGTERM cancel the context, which stops a running certbot
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand(os.Stdout).ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(os.Stderr, manager.DefaultLogger, err)
		os.Exit(common.ExitCode(err))
	}
}

// printError writes the single diagnostic line for err. The full error,
// with its context and suggestions, goes to the debug log first.
func printError(w io.Writer, logger common.LoggerInterface, err error) {
	msg := err.Error()
	if appErr := common.GetApplicationError(err); appErr != nil {
		logger.Debugf("%s", appErr.GetDetailedMessage())
		msg = appErr.Diagnostic()
	}
	fmt.Fprintf(w, "letsexpose: error: %s\n", msg)
}
