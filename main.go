package main

import "facerelay/cmd"

func main() {
	cmd.Execute()
}
