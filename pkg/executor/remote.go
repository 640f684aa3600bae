package executor

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Remote executor is responsible for providing the execution environment
// on a remote machine via ssh.
//
// Every Execute call dials a fresh connection, so each invocation pays the
// full handshake cost. Call frequency is low (a handful of calls per
// benchmark run), so no pooling is done.
type Remote struct {
	config SSHConfig
}

// NewRemote returns a Remote executor for the given ssh configuration.
// The configuration is validated before any command may run.
func NewRemote(config SSHConfig) (Remote, error) {
	if err := config.Validate(); err != nil {
		return Remote{}, err
	}
	return Remote{config: config}, nil
}

// Name returns user-friendly name of executor.
func (remote Remote) Name() string {
	return fmt.Sprintf("Remote Executor (%s)", remote.config.Host)
}

// connect dials the remote host, retrying up to ConnectionAttempts times.
// Connection errors (unreachable host, authentication failure, timeout) are
// returned to the caller once the attempts are exhausted.
func (remote Remote) connect() (*ssh.Client, error) {
	clientConfig, err := remote.config.clientConfig()
	if err != nil {
		return nil, err
	}

	address := fmt.Sprintf("%s:%d", remote.config.Host, remote.config.Port)

	var client *ssh.Client
	attempts := remote.config.ConnectionAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err = ssh.Dial("tcp", address, clientConfig)
		if err == nil {
			return client, nil
		}
		log.Debugf("ssh dial to %q failed (attempt %d/%d): %v", address, attempt, attempts, err)
	}

	return nil, errors.Wrapf(err, "could not connect to %q as %q after %d attempts",
		address, remote.config.User, attempts)
}

// Execute runs the command given as input.
// The returned TaskHandle is able to stop & monitor the provisioned process.
func (remote Remote) Execute(command string) (TaskHandle, error) {
	log.Debugf("Launching %q on %q", command, remote.config.Host)

	client, err := remote.connect()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "could not open ssh session on %q", remote.config.Host)
	}

	terminal := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 80, 40, terminal); err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrapf(err, "could not request pty on %q", remote.config.Host)
	}

	stdoutFile, err := os.CreateTemp("", "benchmark_remote_stdout_")
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "could not create stdout file")
	}
	stderrFile, err := os.CreateTemp("", "benchmark_remote_stderr_")
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "could not create stderr file")
	}

	session.Stdout = stdoutFile
	session.Stderr = stderrFile

	err = session.Start(command)
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrapf(err, "could not start %q on %q", command, remote.config.Host)
	}

	t := &remoteTaskHandle{
		session:    session,
		client:     client,
		command:    command,
		host:       remote.config.Host,
		stdoutFile: stdoutFile,
		stderrFile: stderrFile,
		waitEndCh:  make(chan struct{}),
		exitCode:   -1,
	}

	// Keepalive requests detect a dead connection while a long remote
	// command runs. The goroutine ends when the command does.
	if remote.config.KeepaliveInterval > 0 {
		go t.keepalive(remote.config.KeepaliveInterval)
	}

	// Wait for the remote command in a goroutine, extracting the remote exit
	// status from the ssh ExitError.
	go func() {
		defer close(t.waitEndCh)
		err := session.Wait()
		if err == nil {
			t.exitCode = 0
		} else if exitError, ok := err.(*ssh.ExitError); ok {
			t.exitCode = exitError.Waitmsg.ExitStatus()
		} else {
			log.Errorf("wait for %q on %q returned: %v", command, t.host, err)
		}
		session.Close()
		client.Close()
		log.Debugf("Ended %q on %q with exit code %d", command, t.host, t.exitCode)
	}()

	return checkIfProcessFailedToExecute(command, remote.Name(), t)
}

// remoteTaskHandle implements the TaskHandle interface.
type remoteTaskHandle struct {
	session    *ssh.Session
	client     *ssh.Client
	command    string
	host       string
	stdoutFile *os.File
	stderrFile *os.File

	// waitEndCh is closed when the remote command has terminated.
	waitEndCh chan struct{}
	exitCode  int

	stopMutex sync.Mutex
}

func (t *remoteTaskHandle) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.waitEndCh:
			return
		case <-ticker.C:
			_, _, err := t.client.SendRequest("keepalive@openssh.com", true, nil)
			if err != nil {
				log.Debugf("keepalive to %q failed: %v", t.host, err)
				return
			}
		}
	}
}

// isTerminated checks if the remote command has ended.
func (t *remoteTaskHandle) isTerminated() bool {
	select {
	case <-t.waitEndCh:
		return true
	default:
		return false
	}
}

// Stop terminates the remote task.
func (t *remoteTaskHandle) Stop() error {
	t.stopMutex.Lock()
	defer t.stopMutex.Unlock()

	if t.isTerminated() {
		return nil
	}

	// NOTE: Signal is not implemented by some sshd servers; closing the
	// session tears down the remote pty which terminates the command.
	err := t.session.Signal(ssh.SIGKILL)
	if err != nil {
		log.Debugf("could not signal %q on %q: %v", t.command, t.host, err)
	}
	err = t.session.Close()
	if err != nil && err.Error() != "EOF" {
		return errors.Wrapf(err, "could not close session of %q on %q", t.command, t.host)
	}

	<-t.waitEndCh
	return nil
}

// Status returns a state of the task.
func (t *remoteTaskHandle) Status() TaskState {
	if !t.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns an exit code. If the task is not terminated it returns an error.
func (t *remoteTaskHandle) ExitCode() (int, error) {
	if !t.isTerminated() {
		return -1, errors.New("task is not terminated")
	}
	return t.exitCode, nil
}

// StdoutFile returns a file handle to the task's stdout file.
func (t *remoteTaskHandle) StdoutFile() (*os.File, error) {
	if _, err := os.Stat(t.stdoutFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stdout file is missing")
	}
	t.stdoutFile.Seek(0, os.SEEK_SET)
	return t.stdoutFile, nil
}

// StderrFile returns a file handle to the task's stderr file.
func (t *remoteTaskHandle) StderrFile() (*os.File, error) {
	if _, err := os.Stat(t.stderrFile.Name()); err != nil {
		return nil, errors.Wrap(err, "stderr file is missing")
	}
	t.stderrFile.Seek(0, os.SEEK_SET)
	return t.stderrFile, nil
}

// Wait blocks until the remote command terminates or the timeout elapses.
func (t *remoteTaskHandle) Wait(timeout time.Duration) bool {
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
func (t *remoteTaskHandle) Clean() error {
	for _, file := range []*os.File{t.stdoutFile, t.stderrFile} {
		if err := file.Close(); err != nil {
			return errors.Wrapf(err, "could not close %q", file.Name())
		}
	}
	return nil
}

// EraseOutput removes task's stdout & stderr files.
func (t *remoteTaskHandle) EraseOutput() error {
	for _, file := range []*os.File{t.stdoutFile, t.stderrFile} {
		if err := os.RemoveAll(file.Name()); err != nil {
			return errors.Wrapf(err, "could not remove %q", file.Name())
		}
	}
	return nil
}

// Address returns the address of the host the task was executed on.
func (t *remoteTaskHandle) Address() string {
	return t.host
}
