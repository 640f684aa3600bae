package isolation

import (
	"fmt"
	"strconv"
	"strings"
)

// Taskset is a decorator restricting a command to a set of CPU cores.
type Taskset struct {
	CPUList []int
}

// NewTaskset is a constructor for the Taskset decorator.
func NewTaskset(cpus ...int) Taskset {
	return Taskset{CPUList: cpus}
}

// Decorate implements the Decorator interface.
func (t Taskset) Decorate(command string) string {
	var cpus []string
	for _, cpu := range t.CPUList {
		if cpu >= 0 {
			cpus = append(cpus, strconv.Itoa(cpu))
		}
	}

	cpuList := "0"
	if len(cpus) > 0 {
		cpuList = strings.Join(cpus, ",")
	}

	return fmt.Sprintf("taskset -c %s %s", cpuList, command)
}
