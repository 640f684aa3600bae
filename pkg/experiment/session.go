package experiment

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Session identifies one invocation of an experiment binary. Its directory
// receives the session log, the fetched result archive and the summary.
type Session struct {
	ID   string
	Name string
	Dir  string

	logFile *os.File
}

// NewSession creates a session with a time-and-uuid derived name and a local
// working directory for the experiment artifacts.
func NewSession(appName string) (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "could not create session uuid")
	}

	name := time.Now().Format("2006-01-02T15h04m05s_") + id.String()
	dir := filepath.Join(appName+"_results", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create session directory %q", dir)
	}

	return &Session{
		ID:   id.String(),
		Name: name,
		Dir:  dir,
	}, nil
}

// SetupLogging directs the shared logger to both stderr and the session log
// file.
func (s *Session) SetupLogging(level log.Level) error {
	logFile, err := os.Create(filepath.Join(s.Dir, "session.log"))
	if err != nil {
		return errors.Wrap(err, "could not create session log file")
	}
	s.logFile = logFile

	log.SetLevel(level)
	log.SetFormatter(new(log.TextFormatter))
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	return nil
}

// Close releases the session log file, pointing the logger back at stderr.
func (s *Session) Close() error {
	if s.logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := s.logFile.Close()
	s.logFile = nil
	return err
}
