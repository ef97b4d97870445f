package main

import (
	"context"
	"os"

	"spendsync/internal/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(context.Background(), version, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
