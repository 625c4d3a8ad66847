package main

import (
	"context"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
