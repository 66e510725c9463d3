package main

import "cirlower/cmd"

func main() {
	cmd.Execute()
}
