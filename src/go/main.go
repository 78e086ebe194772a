package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()
	if err == nil {
		return
	}

	code := cmd.ExitFailure
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		code, err = exitErr.Code, exitErr.Err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
