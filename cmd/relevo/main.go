package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/emenda-labs/relevo/core/cli"
	"github.com/emenda-labs/relevo/drivers/npm"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := upDeps{
		resolver:  npm.NewRegistryResolver(),
		installer: &npm.YarnInstaller{},
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}

	runUpFunc := func(ctx context.Context, opts cli.UpOptions) error {
		return runUp(ctx, opts, deps)
	}

	root := cli.NewRootCmd(version)
	root.AddCommand(cli.NewUpCmd(runUpFunc))

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
