// Command semsearchctl is the operator CLI: index, serve, search, and
// inspect the link graph of a semsearchd deployment. Grounded on the prior
// cmd entry point convention (a one-line main delegating to
// internal/cli.Execute, with every subcommand registered via its own init).
package main

import "github.com/mvp-joe/semsearchd/internal/cli"

func main() {
	cli.Execute()
}
