package main

import "github.com/rentease/rentledger/cmd/rentledger/cmd"

func main() {
	cmd.Execute()
}
