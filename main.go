package main

import "botwire/cmd"

func main() {
	cmd.Execute()
}
