// Package main implements the entry point for the shelf-api server, which
// answers graph queries and mutations over a catalogue of authors and books.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
