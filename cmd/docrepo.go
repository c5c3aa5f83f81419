package main

import (
	"os"

	"github.com/adfharrison1/go-docrepo/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
