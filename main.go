package main

import (
	"os"

	"dyphal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
