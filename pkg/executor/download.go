package executor

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Download streams the contents of the remote file at remotePath into w.
// It uses a dedicated session without a pty so binary content (e.g. result
// archives) survives the transfer unmangled.
func (remote Remote) Download(remotePath string, w io.Writer) error {
	client, err := remote.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return errors.Wrapf(err, "could not open ssh session on %q", remote.config.Host)
	}
	defer session.Close()

	session.Stdout = w
	err = session.Run(fmt.Sprintf("cat -- %s", quote(remotePath)))
	if err != nil {
		return errors.Wrapf(err, "could not download %q from %q", remotePath, remote.config.Host)
	}
	return nil
}
