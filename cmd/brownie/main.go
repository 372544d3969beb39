package main

import "github.com/andrewkuryan/brownie/cmd/brownie/cmd"

func main() {
	cmd.Execute()
}
