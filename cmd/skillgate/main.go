// Command skillgate is the CLI integration point for the agent harness's
// hook system: pre-tool-use, stop, activate, status, clear, next, and a
// stdin-driven router activation script.
package main

import "github.com/skillgate/skillgate/internal/cli"

func main() {
	cli.Execute()
}
