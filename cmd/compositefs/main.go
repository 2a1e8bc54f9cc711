package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newCLI(os.Stdout).Exec(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "compositefs:", err)
		os.Exit(1)
	}
}
