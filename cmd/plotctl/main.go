package main

import (
	"fmt"
	"os"

	"github.com/plotsim/plotsim/internal/cli"
)

func main() {
	if err := cli.BuildCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "plotctl:", err)
		os.Exit(1)
	}
}
