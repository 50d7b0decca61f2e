package main

import "github.com/andrescamacho/fishtrack-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
