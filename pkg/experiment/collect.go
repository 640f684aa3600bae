package experiment

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/manuelbernhardt/benchmarks/pkg/executor"
)

// Downloader fetches a remote file's contents. executor.Remote implements it.
type Downloader interface {
	Download(remotePath string, w io.Writer) error
}

// run executes a remote command through the executor and waits for a zero
// exit code.
func run(exec executor.Executor, command string) error {
	handle, err := exec.Execute(command)
	if err != nil {
		return err
	}
	defer func() {
		handle.Clean()
		handle.EraseOutput()
	}()

	handle.Wait(0)

	exitCode, err := handle.ExitCode()
	if err != nil {
		return errors.Wrapf(err, "could not get exit code of %q on %q", command, exec.Name())
	}
	if exitCode != 0 {
		return errors.Errorf("command %q on %q failed: exit code %d", command, exec.Name(), exitCode)
	}
	return nil
}

// environmentCommand captures host metadata into <resultsDir>/environment.
func environmentCommand(resultsDir string) string {
	dir := path.Join(resultsDir, "environment")
	return fmt.Sprintf("mkdir -p %[1]s"+
		" && uname -a > %[1]s/uname 2>&1"+
		" && (lscpu > %[1]s/lscpu 2>&1 || true)"+
		" && (free -m > %[1]s/memory 2>&1 || true)"+
		" && (ip addr > %[1]s/network 2>&1 || true)"+
		" && (sysctl -a > %[1]s/sysctl 2>&1 || true)", dir)
}

// CollectEnvironment captures environment metadata of the executor's host
// into the remote results directory.
func CollectEnvironment(exec executor.Executor, resultsDir string) error {
	log.Infof("Collecting environment metadata on %q", exec.Name())
	return run(exec, environmentCommand(resultsDir))
}

// ArchiveName derives the result archive file name from the scenario label
// and a timestamp. Naming is time-based to second granularity, so collisions
// are practically avoided, not structurally prevented.
func ArchiveName(label string, now time.Time) string {
	return fmt.Sprintf("%s_%s.tar.gz", now.Format("2006-01-02_15-04-05"), label)
}

// archiveCommand removes a pre-existing archive of the same name, then
// creates the archive from the results directory.
func archiveCommand(resultsDir, archivePath string) string {
	return fmt.Sprintf("rm -f %s && tar -C %s -czf %s %s",
		archivePath, path.Dir(resultsDir), archivePath, path.Base(resultsDir))
}

// FetchResults archives the remote results directory under a timestamped,
// scenario-labeled name and transfers the archive into localDir. It returns
// the local path of the fetched archive.
func FetchResults(exec executor.Executor, downloader Downloader, resultsDir, label, localDir string) (string, error) {
	name := ArchiveName(label, time.Now())
	archivePath := path.Join(path.Dir(resultsDir), name)

	log.Infof("Archiving %q into %q on %q", resultsDir, archivePath, exec.Name())
	if err := run(exec, archiveCommand(resultsDir, archivePath)); err != nil {
		return "", errors.Wrap(err, "could not create result archive")
	}

	localPath := filepath.Join(localDir, name)
	localFile, err := os.Create(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "could not create local archive %q", localPath)
	}
	defer localFile.Close()

	log.Infof("Fetching %q into %q", archivePath, localPath)
	if err := downloader.Download(archivePath, localFile); err != nil {
		return "", err
	}
	return localPath, nil
}
