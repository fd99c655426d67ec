package main

import "layered-remap/internal/cli"

func main() {
	cli.Execute()
}
