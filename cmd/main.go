package main

import (
	"os"

	"github.com/memkeeper/memkeeper/cmd/memkeeper"
)

func main() {
	if err := memkeeper.Execute(); err != nil {
		os.Exit(1)
	}
}
