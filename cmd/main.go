package main

import (
	"fmt"
	"os"

	"github.com/ostafen/flashpart/cmd/cmd"
	"github.com/ostafen/flashpart/internal/env"
)

func main() {
	PrintLogo()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// PrintLogo writes the banner to stderr so that data written to stdout by
// read stays clean.
func PrintLogo() {
	w := os.Stderr
	fmt.Fprintln(w, "  __ _           _                       _   ")
	fmt.Fprintln(w, " / _| | __ _ ___| |__  _ __   __ _ _ __| |_ ")
	fmt.Fprintln(w, "| |_| |/ _` / __| '_ \\| '_ \\ / _` | '__| __|")
	fmt.Fprintln(w, "|  _| | (_| \\__ \\ | | | |_) | (_| | |  | |_ ")
	fmt.Fprintln(w, "|_| |_|\\__,_|___/_| |_| .__/ \\__,_|_|   \\__|")
	fmt.Fprintln(w, "                      |_|                    ")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flash partition access tool")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Version:   %s\n", env.Version)
	fmt.Fprintf(w, "Commit:    %s\n", env.CommitHash)
	fmt.Fprintf(w, "Build Time: %s\n", env.BuildTime)
	fmt.Fprintln(w, " ")
}
