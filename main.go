// Command goitm solves and optimizes pseudo-Boolean linear programs given
// in LP format with the In-The-Middle heuristic family.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
