package main

import (
	"os"

	"github.com/supermilas/ordercore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
