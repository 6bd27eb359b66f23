package main

import "github.com/funvibe/nameof/pkg/cli"

func main() {
	cli.Run()
}
