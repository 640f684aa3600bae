package executor

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultSSHPort represents the default port of an SSH server (22).
	DefaultSSHPort = 22
	// DefaultConnectionAttempts is the default number of dial attempts before
	// a connection error becomes fatal.
	DefaultConnectionAttempts = 3
	// DefaultConnectTimeout bounds a single dial attempt.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultKeepaliveInterval is the interval of SSH keepalive requests sent
	// while a remote command is running.
	DefaultKeepaliveInterval = 5 * time.Second
)

// SSHConfig carries the connection parameters for a remote benchmark node:
// credentials plus connection tuning.
type SSHConfig struct {
	User    string
	Host    string
	Port    int
	KeyPath string

	ConnectionAttempts int
	ConnectTimeout     time.Duration
	KeepaliveInterval  time.Duration
}

// Validate checks that all required connection parameters are present.
// A violation is a configuration error and must be raised before any remote
// command executes.
func (config SSHConfig) Validate() error {
	switch {
	case config.User == "":
		return errors.New("ssh configuration error: user is empty")
	case config.Host == "":
		return errors.New("ssh configuration error: host is empty")
	case config.KeyPath == "":
		return errors.New("ssh configuration error: key path is empty")
	case config.Port <= 0:
		return errors.Errorf("ssh configuration error: invalid port %d", config.Port)
	}
	return nil
}

// NewSSHConfig creates a new ssh config for the given user, host and key,
// with default connection tuning.
func NewSSHConfig(user, host string, port int, keyPath string) (SSHConfig, error) {
	config := SSHConfig{
		User:               user,
		Host:               host,
		Port:               port,
		KeyPath:            keyPath,
		ConnectionAttempts: DefaultConnectionAttempts,
		ConnectTimeout:     DefaultConnectTimeout,
		KeepaliveInterval:  DefaultKeepaliveInterval,
	}
	if err := config.Validate(); err != nil {
		return SSHConfig{}, err
	}
	return config, nil
}

// clientConfig builds the crypto/ssh client configuration, reading and
// parsing the private key.
func (config SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	buffer, err := os.ReadFile(config.KeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read ssh key %q", config.KeyPath)
	}

	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse ssh key %q", config.KeyPath)
	}

	return &ssh.ClientConfig{
		User:            config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(key)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         config.ConnectTimeout,
	}, nil
}
