package main

import "github.com/agentic-research/roleforge/cmd"

func main() {
	cmd.Execute()
}
