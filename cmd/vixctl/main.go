package main

import (
	"os"

	"github.com/ignatzorin/vix-backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
