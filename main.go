package main

import (
	"github.com/duesync/duesync/cmd"
)

func main() {
	cmd.Execute()
}
