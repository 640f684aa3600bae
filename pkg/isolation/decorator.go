package isolation

// Decorator is an interface for modifying a command before execution,
// for example by prefixing it with a CPU affinity or kernel-bypass launcher.
type Decorator interface {
	Decorate(command string) string
}

// Decorators is a slice of Decorator objects, applied in order.
type Decorators []Decorator

// Decorate implements the Decorator interface for a chain of decorators.
func (d Decorators) Decorate(command string) string {
	for _, decorator := range d {
		command = decorator.Decorate(command)
	}
	return command
}
