// Command facetctl is the operator CLI: migrations, reindexing and query
// inspection against a configured facetdex deployment.
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
