package main

import (
	"github.com/Predicare/openTriage/pkg/cli"
)

func main() {
	cli.Execute()
}
