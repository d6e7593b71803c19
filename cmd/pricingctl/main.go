package main

import (
	"os"

	_ "time/tzdata"

	"parkspot-backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
