package main

import "auralis/cmd"

func main() {
	cmd.Execute()
}
