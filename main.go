package main

import (
	"fastproxy/cmd"

	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Execute()
}
