package main

import (
	"fmt"
	"os"

	"csv-to-dynamodb/controller"
)

func main() {
	c := controller.NewController(os.Stdin, os.Stdout, os.Stderr)
	cmd := c.NewRootCommand()
	cmd.SilenceErrors = true

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
