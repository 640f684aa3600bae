// Package grpc drives the streaming echo benchmark of the external
// benchmarking framework across a remote client and server node. It builds
// the remote start/stop/run commands and injects run configurations through
// the framework's `-D<dotted.key>=<value>` runtime property protocol.
package grpc

import (
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/manuelbernhardt/benchmarks/pkg/conf"
	"github.com/manuelbernhardt/benchmarks/pkg/executor"
	"github.com/manuelbernhardt/benchmarks/pkg/experiment"
	"github.com/manuelbernhardt/benchmarks/pkg/isolation"
	"github.com/manuelbernhardt/benchmarks/pkg/process"
)

const (
	remotePropertyPrefix = "uk.co.real_logic.benchmarks.remote."
	grpcPropertyPrefix   = "uk.co.real_logic.benchmarks.grpc.remote."

	// jvmOptsEnv is the environment variable through which the property list
	// reaches the benchmarked JVM. This is the de facto wire format between
	// the runner and the external framework's configuration reader.
	jvmOptsEnv = "JVM_OPTS"

	// serverProcessPattern identifies the benchmark server process on the
	// remote host.
	serverProcessPattern = "grpc.remote.EchoServer"
)

// Configuration flags of the streaming benchmark.
var (
	benchmarksDirFlag = conf.NewStringFlag("grpc_dir", "Remote directory of the benchmark distribution", "/opt/benchmarks")
	resultsDirFlag    = conf.NewStringFlag("grpc_results_dir", "Remote directory receiving histogram and log files", "/opt/benchmarks/results")
	certDirFlag       = conf.NewStringFlag("grpc_cert_dir", "Remote directory holding the TLS certificates", "/opt/benchmarks/certificates")
	serverPortFlag    = conf.NewIntFlag("grpc_server_port", "Port of the benchmark server", 13400)
	serverCoreFlag    = conf.NewIntFlag("grpc_server_core", "CPU core to pin the server worker thread to; negative disables pinning", -1)
	serverThreadFlag  = conf.NewStringFlag("grpc_server_thread", "Name of the server worker thread to pin", "echo-server")
	clientCoresFlag   = conf.NewIntSliceFlag("grpc_client_cores", "CPU cores the client process is restricted to; empty disables the restriction")
)

// Config contains all data for running the streaming echo benchmark.
type Config struct {
	BenchmarksDir string
	ResultsDir    string
	CertDir       string
	ServerHost    string
	ServerPort    int

	TLS           bool
	OnloadCommand string

	// ServerCore pins the named server thread when non-negative.
	ServerCore   int
	ServerThread string

	// ClientCores restricts the client process to a CPU set when non-empty.
	ClientCores []int

	// Label names the scenario; it prefixes result files and the archive.
	Label string
}

// DefaultConfig builds a Config from the command line flags and environment
// variables.
func DefaultConfig() Config {
	return Config{
		BenchmarksDir: benchmarksDirFlag.Value(),
		ResultsDir:    resultsDirFlag.Value(),
		CertDir:       certDirFlag.Value(),
		ServerPort:    serverPortFlag.Value(),
		ServerCore:    serverCoreFlag.Value(),
		ServerThread:  serverThreadFlag.Value(),
		ClientCores:   clientCoresFlag.Value(),
		Label:         "grpc-streaming",
	}
}

// streamingBenchmark implements experiment.Benchmark.
type streamingBenchmark struct {
	serverExecutor executor.Executor
	clientExecutor executor.Executor
	config         Config
}

// New returns the streaming echo benchmark workload. serverExecutor and
// clientExecutor address the two benchmark nodes.
func New(serverExecutor executor.Executor, clientExecutor executor.Executor, config Config) experiment.Benchmark {
	return streamingBenchmark{
		serverExecutor: serverExecutor,
		clientExecutor: clientExecutor,
		config:         config,
	}
}

// Name returns the scenario label.
func (s streamingBenchmark) Name() string {
	return s.config.Label
}

// launcher applies the onload wrapper to a script path when configured.
func (s streamingBenchmark) launcher(script string) string {
	if s.config.OnloadCommand == "" {
		return script
	}
	return NewOnload(s.config.OnloadCommand).Decorate(script)
}

func (s streamingBenchmark) connectionProperties() Properties {
	return Properties{
		{grpcPropertyPrefix + "server.host", s.config.ServerHost},
		{grpcPropertyPrefix + "server.port", strconv.Itoa(s.config.ServerPort)},
		{grpcPropertyPrefix + "tls", strconv.FormatBool(s.config.TLS)},
		{grpcPropertyPrefix + "certificates.dir", s.config.CertDir},
	}
}

// serverCommand builds the detached server start command. Output goes to a
// remote log file so the ssh session can close without killing the server.
func (s streamingBenchmark) serverCommand() string {
	script := path.Join(s.config.BenchmarksDir, "scripts/grpc/echo-server")
	logFile := path.Join(s.config.ResultsDir, s.config.Label+"-server.log")

	return executor.NewCommand(s.launcher(script)).
		WithEnv(jvmOptsEnv, s.connectionProperties().Format()).
		Detached(logFile).
		String()
}

// clientCommand builds the blocking client command with the run
// configuration injected as runtime properties.
func (s streamingBenchmark) clientCommand(config experiment.RunConfig) string {
	script := s.launcher(path.Join(s.config.BenchmarksDir, "scripts/grpc/echo-client"))
	if len(s.config.ClientCores) > 0 {
		script = isolation.NewTaskset(s.config.ClientCores...).Decorate(script)
	}
	prefix := fmt.Sprintf("%s_%s_%d_%d_run%d",
		s.config.Label, config.Rate, config.Length, config.Burst, config.Run)

	properties := Properties{
		{remotePropertyPrefix + "output.directory", s.config.ResultsDir},
		{remotePropertyPrefix + "output.prefix", prefix},
		{remotePropertyPrefix + "message.rate", config.Rate},
		{remotePropertyPrefix + "batch.size", strconv.Itoa(config.Burst)},
		{remotePropertyPrefix + "message.length", strconv.Itoa(config.Length)},
		{remotePropertyPrefix + "iterations", strconv.Itoa(config.Iterations)},
		{remotePropertyPrefix + "warmup.iterations", strconv.Itoa(config.WarmupIterations)},
		{remotePropertyPrefix + "warmup.rate", config.WarmupRate},
	}
	properties = append(properties, s.connectionProperties()...)

	return executor.NewCommand(script).
		WithEnv(jvmOptsEnv, properties.Format()).
		String()
}

// StartServer launches the benchmark server detached and waits for its
// process to come up, pinning the configured worker thread when requested.
func (s streamingBenchmark) StartServer() error {
	command := s.serverCommand()
	handle, err := s.serverExecutor.Execute(command)
	if err != nil {
		return errors.Wrap(err, "could not launch server")
	}

	// The detached launch returns as soon as nohup forked the server.
	handle.Wait(0)
	exitCode, err := handle.ExitCode()
	handle.Clean()
	handle.EraseOutput()
	if err != nil {
		return errors.Wrap(err, "could not get server launch exit code")
	}
	if exitCode != 0 {
		return errors.Errorf("server launch %q failed: exit code %d", command, exitCode)
	}

	pid, err := process.AwaitPid(s.serverExecutor, serverProcessPattern)
	if err != nil {
		return errors.Wrap(err, "server did not come up")
	}
	log.Infof("Server for %q running with pid %d", s.config.Label, pid)

	if s.config.ServerCore >= 0 && s.config.ServerThread != "" {
		_, err = process.PinThread(s.serverExecutor, pid, s.config.ServerThread, s.config.ServerCore)
		if err != nil {
			return errors.Wrap(err, "could not pin server thread")
		}
	}
	return nil
}

// StopServer force-terminates the benchmark server. Stopping a stopped
// server is a successful no-op, so the orchestrator can always kill before a
// start to clear stale state.
func (s streamingBenchmark) StopServer() error {
	return process.Kill(s.serverExecutor, serverProcessPattern)
}

// RunClient executes one client run, blocking until the client process
// completed, and parses the achieved throughput from its output.
func (s streamingBenchmark) RunClient(config experiment.RunConfig) (experiment.ClientResult, error) {
	command := s.clientCommand(config)
	handle, err := s.clientExecutor.Execute(command)
	if err != nil {
		return experiment.ClientResult{}, errors.Wrap(err, "could not launch client")
	}
	defer func() {
		handle.Clean()
		handle.EraseOutput()
	}()

	// The client process is the unit of work: it runs the paced message
	// exchange and exits.
	handle.Wait(0)

	exitCode, err := handle.ExitCode()
	if err != nil {
		return experiment.ClientResult{}, errors.Wrap(err, "could not get client exit code")
	}
	if exitCode != 0 {
		executor.LogUnsuccessfulExecution(command, s.clientExecutor.Name(), handle)
		return experiment.ClientResult{}, errors.Errorf("client run failed: exit code %d", exitCode)
	}

	stdoutFile, err := handle.StdoutFile()
	if err != nil {
		return experiment.ClientResult{}, errors.Wrap(err, "could not open client output")
	}
	throughput, err := parseThroughput(stdoutFile)
	if err != nil {
		log.Warnf("could not parse client throughput for %q: %v", s.config.Label, err)
	}

	return experiment.ClientResult{Throughput: throughput}, nil
}

// throughputPattern matches the framework's rate report lines, e.g.
// "Send rate 501,000 msg/sec".
var throughputPattern = regexp.MustCompile(`rate[:\s]+([0-9][0-9,.]*)\s+msgs?/sec`)

// parseThroughput extracts the last reported message rate from the client
// output. Returns zero when the output carries no rate report.
func parseThroughput(r io.Reader) (float64, error) {
	output, err := io.ReadAll(r)
	if err != nil {
		return 0, errors.Wrap(err, "could not read client output")
	}

	matches := throughputPattern.FindAllStringSubmatch(string(output), -1)
	if len(matches) == 0 {
		return 0, nil
	}

	last := strings.Replace(matches[len(matches)-1][1], ",", "", -1)
	throughput, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected rate %q in client output", last)
	}
	return throughput, nil
}
