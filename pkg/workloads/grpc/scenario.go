package grpc

import "strings"

// Scenario is one (TLS, onload) combination of the streaming benchmark.
type Scenario struct {
	TLS    bool
	Onload bool

	// Context is a free-form tag appended to the scenario label, used to
	// distinguish otherwise identical runs (e.g. a kernel version under test).
	Context string
}

// Label derives the scenario name used for artifact naming and reporting.
func (s Scenario) Label() string {
	parts := []string{"grpc-streaming"}
	if s.TLS {
		parts = append(parts, "tls")
	}
	if s.Onload {
		parts = append(parts, "onload")
	}
	if s.Context != "" {
		parts = append(parts, s.Context)
	}
	return strings.Join(parts, "-")
}

// Scenarios expands the scenario matrix. By default both plaintext and TLS
// variants run; tlsEnabled false drops the TLS variant. Each variant runs
// with onload when an onload command is configured.
func Scenarios(tlsEnabled bool, onload bool, context string) []Scenario {
	scenarios := []Scenario{{TLS: false, Onload: onload, Context: context}}
	if tlsEnabled {
		scenarios = append(scenarios, Scenario{TLS: true, Onload: onload, Context: context})
	}
	return scenarios
}
