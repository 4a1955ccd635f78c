package main

import (
	"os"

	"github.com/suykerbuyk/flywheel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
