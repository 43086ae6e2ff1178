// Command thicket manages a persisted object graph from the command line.
package main

import "github.com/mesh-intelligence/thicket/internal/cli"

func main() {
	cli.Execute()
}
