// Command linkctl calls the link API through the resilient client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/linkforge/apiclient/cli"
	"github.com/linkforge/apiclient/shutdown"
)

func main() {
	parent, stop := context.WithCancel(context.Background())
	ctx := shutdown.SetupHandler(parent)

	err := cli.NewRootCmd(cli.DefaultEnv()).ExecuteContext(ctx)

	// Run the shutdown hooks before exiting.
	stop()
	<-ctx.Done()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.AppName+":", err)
	}

	os.Exit(cli.ExitCode(err))
}
