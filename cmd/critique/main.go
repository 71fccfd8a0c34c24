package main

import (
	"os"

	"github.com/felixgeelhaar/critique/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cli.ExitCode(cli.Execute())
}
