// Command gatekeeper runs the gate-access controller daemon.
package main

import "github.com/oshokin/gatekeeper/cmd/gatekeeper/cmd"

func main() {
	cmd.Execute()
}
