package main

import "savings-vault-engine/internal/cli"

func main() {
	cli.Execute()
}
