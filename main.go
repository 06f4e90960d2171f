package main

import (
	"supernode-rewards/internal/cli"
)

func main() {
	cli.Execute()
}
