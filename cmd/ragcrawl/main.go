// The main package for the ragcrawl executable.
package main

import (
	"github.com/oenoai/ragcrawl/cmd"
)

func main() {
	cmd.Execute()
}
