package fs

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadTail returns the last lineCount lines of the file at path.
// Used for surfacing the tail of a failed command's output in error logs.
func ReadTail(path string, lineCount int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "could not read %q", path)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > lineCount {
		lines = lines[len(lines)-lineCount:]
	}

	return strings.Join(lines, "\n"), nil
}
