// Package main is the entry point for the dialctl operator CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dialctl:", err)
		os.Exit(1)
	}
}
