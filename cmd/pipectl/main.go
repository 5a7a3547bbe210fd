// Command pipectl submits goals to the pipeline backend and follows the
// resulting tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/pipectl/internal/cmd"
	"github.com/felixgeelhaar/pipectl/internal/exitcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stderr)
	stop()
	exitcode.Exit(code)
}

func run(ctx context.Context, stderr io.Writer) int {
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(ctx.Err(), context.Canceled):
		fmt.Fprintln(stderr, "\ninterrupted")
		return exitcode.Interrupted
	}
	cmd.PrintError(stderr, err, os.Getenv("NO_COLOR") == "")
	return exitcode.DetermineExitCode(err)
}
