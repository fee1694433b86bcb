// Command alterego is the local persona dialogue assistant: a chat loop
// over the symbolic log, the semantic memory index and the persona
// registry, plus maintenance commands for ingestion and fronting.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
