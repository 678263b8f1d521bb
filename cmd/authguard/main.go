// Command authguard runs a demo web application behind the session guard and
// offers offline tooling for inspecting routing decisions.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
