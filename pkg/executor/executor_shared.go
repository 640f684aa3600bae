package executor

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// checkIfProcessFailedToExecute is checked at the end of an Execute(cmd) method.
// If the task already terminated with a non-zero exit code, it returns a nil
// handle and an error. If the task is still running or the exit code is zero,
// it returns a nil error.
//
// Commands usually fail this early because of wrong parameters or a binary
// that is not installed on the target host.
func checkIfProcessFailedToExecute(command string, executorName string, handle TaskHandle) (TaskHandle, error) {
	if handle.Status() == TERMINATED {
		exitCode, err := handle.ExitCode()
		if err != nil {
			log.Errorf("task %q launched on %q failed, cannot get exit code: %s", command, executorName, err.Error())
			LogUnsuccessfulExecution(command, executorName, handle)
			return nil, errors.Errorf("task %q launched on %q failed, cannot get exit code: %s", command, executorName, err.Error())
		}
		if exitCode != 0 {
			log.Errorf("task %q launched on %q failed: exit code %d", command, executorName, exitCode)
			LogUnsuccessfulExecution(command, executorName, handle)
			return nil, errors.Errorf("task %q launched on %q failed: exit code %d", command, executorName, exitCode)
		}

		log.Debugf("task %q launched on %q has ended successfully", command, executorName)
		return handle, nil
	}

	return handle, nil
}
