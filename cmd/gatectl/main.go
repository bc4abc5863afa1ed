// Command gatectl talks to a gatekeeper daemon.
package main

import "github.com/oshokin/gatekeeper/cmd/gatectl/cmd"

func main() {
	cmd.Execute()
}
