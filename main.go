package main

import "github.com/devicelab-dev/deskflow/pkg/cli"

func main() {
	cli.Execute()
}
