package main

import "github.com/optoforge/go-stradus/internal/cli"

func main() {
	cli.Execute()
}
