package main

import "github.com/evo-edit/evo/cmd"

func main() {
	cmd.Execute()
}
