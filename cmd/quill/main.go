// Package main is the single-binary entrypoint for Quill.
package main

import "github.com/quill-writing/quill/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
