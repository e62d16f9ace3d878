// Package main is the zukan CLI entry point.
package main

import "github.com/hyperjump/zukan/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
