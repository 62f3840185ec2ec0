package main

import "github.com/devicelab-dev/uiresolve/pkg/cli"

func main() {
	cli.Execute()
}
