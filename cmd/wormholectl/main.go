// Command wormholectl is the command-line client of the wormhole API.
package main

import "github.com/ciwomuli/eve-wormhole/internal/cli"

func main() {
	cli.Execute()
}
