package executor

// Executor is responsible for creating an execution environment for a given command.
// It returns a TaskHandle when the command started gracefully.
// The command is executed asynchronously.
type Executor interface {
	// Execute executes command on underlying platform.
	Execute(command string) (TaskHandle, error)
	// Name returns user-friendly name of executor.
	Name() string
}
