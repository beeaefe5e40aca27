// Command designflow compiles a flow-builder design document and answers
// questions through it, interactively or over HTTP.
package main

import (
	"os"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
