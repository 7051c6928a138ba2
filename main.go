package main

import (
	"log"

	"github.com/moorebrett0/hatchling/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("hatchling: %v", err)
	}
}
