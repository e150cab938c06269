package main

import "faucet-cli/cmd"

func main() {
	cmd.Execute()
}
