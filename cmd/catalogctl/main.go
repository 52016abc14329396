package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nulzo/model-catalog/internal/cli"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s %v\n", cli.CrossMark(), err)
		}
		os.Exit(1)
	}
}
