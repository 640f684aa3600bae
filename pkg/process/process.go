// Package process builds and drives the remote shell snippets used to manage
// benchmark processes on remote nodes: locating a process by a command-line
// pattern, waiting for it to start, pinning one of its threads to a CPU core
// and force-terminating it.
package process

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/manuelbernhardt/benchmarks/pkg/executor"
)

const (
	// pidPollInterval is the interval at which a not-yet-started process is
	// re-checked.
	pidPollInterval = 500 * time.Millisecond
	// threadPollInterval is the interval at which a not-yet-spawned thread is
	// re-checked before pinning.
	threadPollInterval = 100 * time.Millisecond
)

// FindPidCommand returns a remote snippet which prints the PID of the first
// java process whose command line matches pattern, or nothing when there is
// no match.
func FindPidCommand(pattern string) string {
	return fmt.Sprintf(`pgrep -f -l '%s' | awk '/java/ {print $1; exit}'`, pattern)
}

// KillCommand returns a remote snippet which force-terminates all processes
// matching pattern. It is idempotent: with no matching process it succeeds as
// a no-op, so a stop sequence can always run a kill before each start to
// clear stale state.
func KillCommand(pattern string) string {
	return fmt.Sprintf(`pkill -9 -f '%s' || true`, pattern)
}

// findTidCommand returns a remote snippet which prints the OS thread id of
// the first thread of pid whose name matches threadName.
func findTidCommand(pid int, threadName string) string {
	return fmt.Sprintf(`ps -L -p %d -o tid=,comm= | awk '/%s/ {print $1; exit}'`, pid, threadName)
}

// output runs command through the given executor, waits for completion and
// returns the trimmed standard output.
func output(exec executor.Executor, command string) (string, error) {
	handle, err := exec.Execute(command)
	if err != nil {
		return "", err
	}
	defer func() {
		handle.Clean()
		handle.EraseOutput()
	}()

	handle.Wait(0)

	exitCode, err := handle.ExitCode()
	if err != nil {
		return "", errors.Wrapf(err, "could not get exit code of %q on %q", command, exec.Name())
	}
	if exitCode != 0 {
		return "", errors.Errorf("command %q on %q failed: exit code %d", command, exec.Name(), exitCode)
	}

	stdoutFile, err := handle.StdoutFile()
	if err != nil {
		return "", errors.Wrapf(err, "could not open stdout of %q on %q", command, exec.Name())
	}
	stdout, err := io.ReadAll(stdoutFile)
	if err != nil {
		return "", errors.Wrapf(err, "could not read stdout of %q on %q", command, exec.Name())
	}

	return strings.TrimSpace(string(stdout)), nil
}

// FindPid resolves the PID of the first java process matching pattern.
// The second return value reports whether a match was found.
func FindPid(exec executor.Executor, pattern string) (int, bool, error) {
	out, err := output(exec, FindPidCommand(pattern))
	if err != nil {
		return 0, false, err
	}
	if out == "" {
		return 0, false, nil
	}

	pid, err := strconv.Atoi(out)
	if err != nil {
		return 0, false, errors.Wrapf(err, "unexpected pid output %q for pattern %q", out, pattern)
	}
	return pid, true, nil
}

// AwaitPid polls for a process matching pattern until it appears and returns
// its PID.
//
// There is no upper bound on the wait: a remote process that never starts
// hangs the caller. The interval between polls matches the original runner
// (0.5s).
func AwaitPid(exec executor.Executor, pattern string) (int, error) {
	for {
		pid, found, err := FindPid(exec, pattern)
		if err != nil {
			return 0, err
		}
		if found {
			log.Debugf("process matching %q started on %q with pid %d", pattern, exec.Name(), pid)
			return pid, nil
		}
		time.Sleep(pidPollInterval)
	}
}

// PinThread waits for a thread of pid whose name matches threadName and
// restricts it to the given CPU core. It returns the pinned thread id.
//
// Like AwaitPid, the wait for the thread to appear is unbounded; the poll
// interval matches the original runner (0.1s).
func PinThread(exec executor.Executor, pid int, threadName string, core int) (int, error) {
	var tid int
	for {
		out, err := output(exec, findTidCommand(pid, threadName))
		if err != nil {
			return 0, err
		}
		if out != "" {
			tid, err = strconv.Atoi(out)
			if err != nil {
				return 0, errors.Wrapf(err, "unexpected tid output %q for thread %q of pid %d", out, threadName, pid)
			}
			break
		}
		time.Sleep(threadPollInterval)
	}

	_, err := output(exec, fmt.Sprintf("taskset -c -p %d %d", core, tid))
	if err != nil {
		return 0, errors.Wrapf(err, "could not pin thread %d of pid %d to core %d", tid, pid, core)
	}

	log.Debugf("pinned thread %q (tid %d) of pid %d to core %d on %q", threadName, tid, pid, core, exec.Name())
	return tid, nil
}

// Kill force-terminates all processes matching pattern on the executor's
// host. Invoking it without a matching process is a successful no-op.
func Kill(exec executor.Executor, pattern string) error {
	_, err := output(exec, KillCommand(pattern))
	return err
}
