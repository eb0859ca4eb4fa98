// Package main provides kvs, a persistent log-structured key-value store.
package main

import (
	"os"

	"github.com/calvinalkan/kvs/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args))
}
