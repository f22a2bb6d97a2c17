// Package main is the single-binary entrypoint for readgarden.
package main

import "github.com/readgarden/readgarden/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
