// main is the entry point for the repowatch CLI.
package main

import (
	"os"

	"github.com/repowatch/repowatch/cmd"
	"github.com/repowatch/repowatch/internal/contract"
)

func main() {
	err := cmd.Execute()

	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Cannot stop profiling cleanly", perr)
	}

	if err != nil {
		contract.LogWarn("Command failed", err)
		os.Exit(1)
	}
}
