package main

import "github.com/ardanlabs/blocksim/app/tooling/simctl/cmd"

func main() {
	cmd.Execute()
}
