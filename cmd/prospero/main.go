package main

import "prospero/internal/cli"

func main() {
	cli.Execute()
}
