// Package main is the entry point for the rewind CLI, which builds
// checkpointed season summaries from a player's ranked match history.
package main

import "github.com/pable/rift-rewind/cmd"

func main() {
	cmd.Execute()
}
