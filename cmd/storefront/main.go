// Command storefront is a terminal client for the bookstore service.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/roach88/storefront/internal/cli"
)

var version = "dev"

func main() {
	root := cli.NewRootCommand()
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
