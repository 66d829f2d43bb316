package main

import "lakecat/cmd"

func main() {
	cmd.Execute()
}
