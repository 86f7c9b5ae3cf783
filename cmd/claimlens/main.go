// Package main is the entry point for the claimlens CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/claimlens/internal/adapters/driving/cli"
)

func main() {
	// Load .env if present so API keys can live beside the repo.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
