// hookgate is the policy gate for coding-agent hooks.
package main

import "github.com/ppiankov/hookgate/internal/cli"

func main() {
	cli.Execute()
}
