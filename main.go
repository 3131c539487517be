package main

import (
	"os"

	"github.com/fletescerealeros/fletes/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
