// Package experiment drives remote benchmark sweeps: it expands configured
// sweep axes into run configurations, executes them strictly sequentially
// against a benchmark workload, and collects the produced artifacts.
package experiment

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/manuelbernhardt/benchmarks/pkg/conf"
)

// StopOnErrorFlag decides whether a failed run aborts the whole sweep.
// The default is fail-fast, mirroring the behaviour operators expect from
// the shell-based runners this tool replaces.
var StopOnErrorFlag = conf.NewBoolFlag("stop_on_error", "Stop the sweep on the first failed run", true)

// ClientResult carries what the orchestrator learned from one client run.
type ClientResult struct {
	// Throughput is the achieved message rate reported by the client, in
	// messages per second. Zero when the client output carried no summary.
	Throughput float64
}

// Benchmark is the workload driven by the Orchestrator. Implementations
// build and execute the concrete remote start/stop/run commands.
type Benchmark interface {
	// Name returns the scenario label, used for artifact naming and reporting.
	Name() string
	// StartServer launches the benchmark server detached on the server node
	// and returns once the server process is up.
	StartServer() error
	// StopServer terminates the benchmark server. It is idempotent: stopping
	// an already stopped server is a successful no-op.
	StopServer() error
	// RunClient executes one client run with the given configuration,
	// blocking until the client process completes.
	RunClient(config RunConfig) (ClientResult, error)
}

// Orchestrator executes run configurations one at a time, in order.
// The remote server process is the single shared resource across runs;
// exclusivity is achieved purely through strict sequencing.
type Orchestrator struct {
	benchmark Benchmark
	report    *Report

	// StopOnError aborts the sweep on the first failed run when true.
	// Connection-establishment failures abort regardless.
	StopOnError bool
	// ShowProgress renders a progress bar over the total number of runs.
	ShowProgress bool
}

// NewOrchestrator returns an Orchestrator for the given benchmark, recording
// results into report.
func NewOrchestrator(benchmark Benchmark, report *Report) *Orchestrator {
	return &Orchestrator{
		benchmark:   benchmark,
		report:      report,
		StopOnError: StopOnErrorFlag.Value(),
	}
}

// Run executes all configurations sequentially. The next run's server start
// is only issued after the previous run's server stop returned.
func (o *Orchestrator) Run(configs []RunConfig) error {
	var bar *pb.ProgressBar
	if o.ShowProgress {
		bar = pb.StartNew(len(configs))
		bar.ShowCounters = true
		bar.ShowTimeLeft = true
		defer bar.Finish()
	}

	for i, config := range configs {
		description := fmt.Sprintf("%s rate %s length %d burst %d run %d",
			o.benchmark.Name(), config.Rate, config.Length, config.Burst, config.Run)
		if bar != nil {
			bar.Prefix(fmt.Sprintf("[%02d/%02d] ", i+1, len(configs)))
		}
		log.Infof("Starting %s", description)

		err := o.runOne(config)
		if err != nil {
			if o.StopOnError {
				return errors.Wrapf(err, "run failed (%s)", description)
			}
			log.Errorf("run failed (%s), continuing with the next configuration: %v", description, err)
		}

		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

// runOne performs a single run:
//
//	STOP_SERVER (clear stale state) -> START_SERVER -> START_CLIENT ->
//	AWAIT_CLIENT_COMPLETION -> STOP_SERVER
//
// The final STOP_SERVER always executes, also when the client run failed, so
// no server process leaks into the next configuration.
func (o *Orchestrator) runOne(config RunConfig) (err error) {
	if err := o.benchmark.StopServer(); err != nil {
		return errors.Wrap(err, "could not clear stale server state")
	}

	if err := o.benchmark.StartServer(); err != nil {
		return errors.Wrap(err, "could not start server")
	}
	defer func() {
		stopErr := o.benchmark.StopServer()
		if stopErr == nil {
			return
		}
		if err == nil {
			err = errors.Wrap(stopErr, "could not stop server")
		} else {
			log.Errorf("could not stop server after failed run: %v", stopErr)
		}
	}()

	result, err := o.benchmark.RunClient(config)
	if err != nil {
		return errors.Wrap(err, "client run failed")
	}

	if o.report != nil {
		o.report.Add(o.benchmark.Name(), config, result)
	}
	return nil
}
