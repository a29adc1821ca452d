package main

import (
	"github.com/marketlab/stocksim/internal/cli"
)

func main() {
	cli.Execute()
}
