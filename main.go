package main

import (
	"os"

	"canvas/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
