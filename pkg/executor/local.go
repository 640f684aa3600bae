package executor

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Local executor is responsible for providing the execution environment
// on the local machine via exec.Command.
// It runs the command as the current user.
type Local struct {
}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{}
}

// Name returns user-friendly name of executor.
func (l Local) Name() string {
	return "Local Executor"
}

// Execute runs the command given as input.
// The returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Execute(command string) (TaskHandle, error) {
	log.Debugf("Launching %q locally", command)

	stdoutFile, err := os.CreateTemp("", "benchmark_local_stdout_")
	if err != nil {
		return nil, errors.Wrap(err, "could not create stdout file")
	}
	stderrFile, err := os.CreateTemp("", "benchmark_local_stderr_")
	if err != nil {
		return nil, errors.Wrap(err, "could not create stderr file")
	}

	cmd := exec.Command("sh", "-c", command)
	// An additional process group for the command and its children gives us
	// the ability to kill the whole process tree on Stop.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	err = cmd.Start()
	if err != nil {
		return nil, errors.Wrapf(err, "could not start %q", command)
	}

	log.Debugf("Started %q with pid %d", command, cmd.Process.Pid)

	t := &localTaskHandle{
		cmdHandler: cmd,
		command:    command,
		stdoutFile: stdoutFile,
		stderrFile: stderrFile,
		waitEndCh:  make(chan struct{}),
	}

	// Wait for the command in a goroutine, so Status and Wait observe
	// completion without racing on cmd.Wait.
	go func() {
		defer close(t.waitEndCh)
		t.cmdHandler.Wait()
		log.Debugf("Ended %q with exit code %d", command, t.exitCode())
	}()

	return checkIfProcessFailedToExecute(command, l.Name(), t)
}

// localTaskHandle implements the TaskHandle interface.
type localTaskHandle struct {
	cmdHandler *exec.Cmd
	command    string
	stdoutFile *os.File
	stderrFile *os.File

	// waitEndCh is closed when the command's Wait has returned.
	waitEndCh chan struct{}

	stopMutex sync.Mutex
}

// isTerminated checks if the command's Wait has ended.
func (t *localTaskHandle) isTerminated() bool {
	select {
	case <-t.waitEndCh:
		return true
	default:
		return false
	}
}

func (t *localTaskHandle) exitCode() int {
	waitStatus := t.cmdHandler.ProcessState.Sys().(syscall.WaitStatus)
	if waitStatus.Exited() {
		return waitStatus.ExitStatus()
	}
	// Show what signal caused the termination.
	return -int(waitStatus.Signal())
}

// Stop terminates the local task.
func (t *localTaskHandle) Stop() error {
	t.stopMutex.Lock()
	defer t.stopMutex.Unlock()

	if t.isTerminated() {
		return nil
	}

	// We signal the entire process group.
	// The kill syscall interprets a negated PID N as the process group N belongs to.
	log.Debugf("Sending SIGKILL to process group %d", t.cmdHandler.Process.Pid)
	err := syscall.Kill(-t.cmdHandler.Process.Pid, syscall.SIGKILL)
	if err != nil {
		return errors.Wrapf(err, "could not kill process group %d", t.cmdHandler.Process.Pid)
	}

	<-t.waitEndCh
	return nil
}

// Status returns a state of the task.
func (t *localTaskHandle) Status() TaskState {
	if !t.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns an exit code. If the task is not terminated it returns an error.
func (t *localTaskHandle) ExitCode() (int, error) {
	if !t.isTerminated() {
		return -1, errors.New("task is not terminated")
	}
	return t.exitCode(), nil
}

// StdoutFile returns a file handle to the task's stdout file.
func (t *localTaskHandle) StdoutFile() (*os.File, error) {
	if _, err := os.Stat(t.stdoutFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stdout file is missing")
	}
	t.stdoutFile.Seek(0, os.SEEK_SET)
	return t.stdoutFile, nil
}

// StderrFile returns a file handle to the task's stderr file.
func (t *localTaskHandle) StderrFile() (*os.File, error) {
	if _, err := os.Stat(t.stderrFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stderr file is missing")
	}
	t.stderrFile.Seek(0, os.SEEK_SET)
	return t.stderrFile, nil
}

// Wait blocks until the task terminates or the timeout elapses.
func (t *localTaskHandle) Wait(timeout time.Duration) bool {
	if t.isTerminated() {
		return true
	}

	if timeout == 0 {
		<-t.waitEndCh
		return true
	}

	select {
	case <-t.waitEndCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Clean closes the task's stdout & stderr files.
func (t *localTaskHandle) Clean() error {
	for _, file := range []*os.File{t.stdoutFile, t.stderrFile} {
		if err := file.Close(); err != nil {
			return errors.Wrapf(err, "could not close %q", file.Name())
		}
	}
	return nil
}

// EraseOutput removes task's stdout & stderr files.
func (t *localTaskHandle) EraseOutput() error {
	for _, file := range []*os.File{t.stdoutFile, t.stderrFile} {
		if err := os.RemoveAll(file.Name()); err != nil {
			return errors.Wrapf(err, "could not remove %q", file.Name())
		}
	}
	return nil
}

// Address returns the address of the host the task was executed on.
func (t *localTaskHandle) Address() string {
	return "127.0.0.1"
}
