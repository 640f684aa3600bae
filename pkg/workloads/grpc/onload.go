package grpc

import (
	"fmt"

	"github.com/manuelbernhardt/benchmarks/pkg/isolation"
)

// Onload wraps a command with the OpenOnload kernel-bypass launcher so the
// benchmarked process's sockets are accelerated.
type Onload struct {
	command string
}

// NewOnload returns an Onload decorator using the given launcher command,
// e.g. "onload --profile=latency".
func NewOnload(command string) isolation.Decorator {
	return Onload{command: command}
}

// Decorate prefixes the command with the onload launcher.
func (o Onload) Decorate(command string) string {
	return fmt.Sprintf("%s %s", o.command, command)
}
