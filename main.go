package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"slip-swap/cmd"
)

func main() {
	// .env is optional; configuration may also come from the shell environment
	// or a config file.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
