package main

import "github.com/clawcore/runtime/cmd"

func main() {
	cmd.Execute()
}
