package main

import (
	"os"

	"contract_deployer/cmd/deployctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
