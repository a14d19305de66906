package main

import (
	"fmt"
	"os"

	"candrive/internal/admincli"
)

func main() {
	if err := admincli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
