// Command lockstep plays, records, replays and tests deterministic
// fixed-timestep simulations.
package main

import (
	"os"

	"github.com/roach88/lockstep/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
