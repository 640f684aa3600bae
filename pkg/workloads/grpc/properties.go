package grpc

import "strings"

// Property is a single runtime property passed to the benchmarked JVM.
type Property struct {
	Key   string
	Value string
}

// Properties is an ordered property list. Order is preserved through
// formatting since the receiving side resolves duplicate keys positionally.
type Properties []Property

// Format serializes the list to the framework's `-D<key>=<value>` form,
// space separated.
func (p Properties) Format() string {
	parts := make([]string, 0, len(p))
	for _, property := range p {
		parts = append(parts, "-D"+property.Key+"="+property.Value)
	}
	return strings.Join(parts, " ")
}
