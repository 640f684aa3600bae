// The grpc-streaming binary sweeps the gRPC streaming echo benchmark over
// two remote nodes reached through ssh. One node runs the echo server, the
// other runs the paced client; the binary drives both, fetches the produced
// histograms and prints a throughput summary.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/manuelbernhardt/benchmarks/pkg/conf"
	"github.com/manuelbernhardt/benchmarks/pkg/executor"
	"github.com/manuelbernhardt/benchmarks/pkg/experiment"
	"github.com/manuelbernhardt/benchmarks/pkg/utils/errutil"
	"github.com/manuelbernhardt/benchmarks/pkg/workloads/grpc"
)

var (
	appName = "grpc-streaming"

	serverHostFlag = conf.NewStringFlag("server_host", "Address of the node running the echo server", "")
	clientHostFlag = conf.NewStringFlag("client_host", "Address of the node running the echo client", "")

	sshUserFlag               = conf.NewStringFlag("ssh_user", "User for ssh connections to the benchmark nodes", "root")
	sshKeyFlag                = conf.NewFileFlag("ssh_key", "Private key for ssh connections", filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa"))
	sshPortFlag               = conf.NewIntFlag("ssh_port", "Port for ssh connections", 22)
	sshConnectionAttemptsFlag = conf.NewIntFlag("ssh_connection_attempts", "Number of ssh connection attempts before giving up", 3)
	sshConnectTimeoutFlag     = conf.NewDurationFlag("ssh_connect_timeout", "Timeout of a single ssh connection attempt", 10*time.Second)
	sshKeepaliveFlag          = conf.NewDurationFlag("ssh_keepalive_interval", "Interval of ssh keepalive requests during long runs", 5*time.Second)

	tlsFlag      = conf.NewBoolFlag("tls", "Also run the TLS variant of each scenario (--no-tls disables)", true)
	onloadFlag   = conf.NewStringFlag("onload", "OpenOnload launcher command wrapping server and client", "onload")
	noOnloadFlag = conf.NewBoolFlag("no-onload", "Run without the OpenOnload launcher", false)
	contextFlag  = conf.NewStringFlag("context", "Free-form tag appended to scenario labels", "")
)

// onloadCommand resolves the effective launcher command: --no-onload wins
// over --onload.
func onloadCommand() string {
	if noOnloadFlag.Value() {
		return ""
	}
	return onloadFlag.Value()
}

func sshExecutor(host string) (executor.Remote, error) {
	config, err := executor.NewSSHConfig(sshUserFlag.Value(), host, sshPortFlag.Value(), sshKeyFlag.Value())
	if err != nil {
		return executor.Remote{}, err
	}
	config.ConnectionAttempts = sshConnectionAttemptsFlag.Value()
	config.ConnectTimeout = sshConnectTimeoutFlag.Value()
	config.KeepaliveInterval = sshKeepaliveFlag.Value()
	return executor.NewRemote(config)
}

func main() {
	conf.SetAppName(appName)
	conf.SetHelp("Sweeps the gRPC streaming echo benchmark over remote server and client nodes.")
	errutil.Check(conf.ParseFlags())

	if serverHostFlag.Value() == "" || clientHostFlag.Value() == "" {
		fmt.Fprintln(os.Stderr, "both --server_host and --client_host are required")
		os.Exit(1)
	}

	// Configuration errors must surface before any remote action.
	axes := experiment.AxesFromFlags()
	configs, err := axes.Expand()
	errutil.Check(err)

	session, err := experiment.NewSession(appName)
	errutil.Check(err)
	errutil.Check(session.SetupLogging(conf.LogLevel()))
	defer session.Close()
	log.Infof("Session %q writing to %q", session.Name, session.Dir)

	serverExecutor, err := sshExecutor(serverHostFlag.Value())
	errutil.CheckWithContext(err, "could not configure server node access")
	clientExecutor, err := sshExecutor(clientHostFlag.Value())
	errutil.CheckWithContext(err, "could not configure client node access")

	var metadata *experiment.Metadata
	if experiment.MetadataEnabledFlag.Value() {
		metadata = experiment.NewMetadata(session.ID, experiment.MetadataConfigFromFlags())
		errutil.CheckWithContext(metadata.Connect(), "could not connect to the metadata store")
		defer metadata.Close()
		errutil.Check(metadata.RecordFlags())
		errutil.Check(metadata.RecordEnv("BENCH"))
	}

	scenarios := grpc.Scenarios(tlsFlag.Value(), onloadCommand() != "", contextFlag.Value())
	report := experiment.NewReport()

	workloadConfig := grpc.DefaultConfig()
	workloadConfig.ServerHost = serverHostFlag.Value()

	for _, scenario := range scenarios {
		config := workloadConfig
		config.TLS = scenario.TLS
		if scenario.Onload {
			config.OnloadCommand = onloadCommand()
		}
		config.Label = scenario.Label()
		log.Infof("Running scenario %q: %d configurations", config.Label, len(configs))

		if metadata != nil {
			for _, runConfig := range configs {
				if err := metadata.RecordRun(config.Label, runConfig); err != nil {
					log.Warnf("could not record run metadata: %v", err)
				}
			}
		}

		benchmark := grpc.New(serverExecutor, clientExecutor, config)
		orchestrator := experiment.NewOrchestrator(benchmark, report)
		orchestrator.ShowProgress = true
		errutil.CheckWithContext(orchestrator.Run(configs), fmt.Sprintf("scenario %q failed", config.Label))
	}

	// Result files of all scenarios share the remote results directory, so
	// one archive after the last scenario covers the whole session.
	archiveLabel := appName
	if contextFlag.Value() != "" {
		archiveLabel = fmt.Sprintf("%s_%s", appName, contextFlag.Value())
	}
	errutil.CheckWithContext(
		experiment.CollectEnvironment(clientExecutor, workloadConfig.ResultsDir),
		"could not collect environment metadata")
	archive, err := experiment.FetchResults(clientExecutor, clientExecutor, workloadConfig.ResultsDir, archiveLabel, session.Dir)
	errutil.CheckWithContext(err, "could not fetch results")
	log.Infof("Results archived in %q", archive)

	report.Render(os.Stdout)
	errutil.Check(report.WriteFile(filepath.Join(session.Dir, "summary.txt")))
}
