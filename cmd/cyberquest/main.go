// Command cyberquest drives the CyberQuest progression engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/cyberquest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
