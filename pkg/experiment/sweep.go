package experiment

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/manuelbernhardt/benchmarks/pkg/conf"
)

// Sweep axis flags shared by all experiment binaries.
var (
	// RatesFlag represents the message rate axis. Rates pair positionally
	// with message lengths.
	RatesFlag = conf.NewSliceFlag("rates", "Message rates to sweep (e.g. 1001K,501K). Paired positionally with --lengths.", "1001K", "501K", "101K")
	// LengthsFlag represents the message length axis, paired with rates.
	LengthsFlag = conf.NewIntSliceFlag("lengths", "Message lengths in bytes, one per rate.", 32, 288, 1344)
	// BurstsFlag represents the burst size axis, fully crossed with rate/length pairs.
	BurstsFlag = conf.NewIntSliceFlag("bursts", "Burst sizes to sweep.", 1)
	// RunsFlag indicates how often each configuration is repeated.
	RunsFlag = conf.NewIntFlag("runs", "Number of runs per configuration", 3)
	// IterationsFlag is the number of measured iterations per run.
	IterationsFlag = conf.NewIntFlag("iterations", "Number of measured iterations per run", 60)
	// WarmupIterationsFlag is the number of unmeasured warmup iterations per run.
	WarmupIterationsFlag = conf.NewIntFlag("warmup_iterations", "Number of warmup iterations per run", 10)
	// WarmupRateFlag is the message rate used during warmup.
	WarmupRateFlag = conf.NewStringFlag("warmup_rate", "Message rate during warmup", "10K")
)

// Axes holds the configured sweep dimensions. Rates and Lengths are paired
// positionally (rate[i] with length[i]); Bursts is an independent, fully
// crossed axis; Runs repeats every combination.
type Axes struct {
	Rates   []string
	Lengths []int
	Bursts  []int
	Runs    int

	// Fixed per-run parameters, not swept.
	Iterations       int
	WarmupIterations int
	WarmupRate       string
}

// AxesFromFlags builds the sweep axes from the command line flags and
// environment variables.
func AxesFromFlags() Axes {
	return Axes{
		Rates:            RatesFlag.Value(),
		Lengths:          LengthsFlag.Value(),
		Bursts:           BurstsFlag.Value(),
		Runs:             RunsFlag.Value(),
		Iterations:       IterationsFlag.Value(),
		WarmupIterations: WarmupIterationsFlag.Value(),
		WarmupRate:       WarmupRateFlag.Value(),
	}
}

// Validate checks the axes before any remote call is made. Rate and length
// sequences must have equal, non-zero cardinality; at least one burst size
// and run are required; every rate must parse.
func (a Axes) Validate() error {
	if len(a.Rates) == 0 {
		return errors.New("sweep configuration error: rates axis is empty")
	}
	if len(a.Rates) != len(a.Lengths) {
		return errors.Errorf("sweep configuration error: %d rates but %d lengths; rates and lengths pair positionally and must have equal cardinality",
			len(a.Rates), len(a.Lengths))
	}
	if len(a.Bursts) == 0 {
		return errors.New("sweep configuration error: bursts axis is empty")
	}
	if a.Runs < 1 {
		return errors.Errorf("sweep configuration error: runs must be positive, got %d", a.Runs)
	}
	rates := make([]string, 0, len(a.Rates)+1)
	rates = append(rates, a.Rates...)
	if a.WarmupRate != "" {
		rates = append(rates, a.WarmupRate)
	}
	for _, rate := range rates {
		if _, err := ParseRate(rate); err != nil {
			return err
		}
	}
	return nil
}

// RunConfig is one concrete benchmark configuration produced by the sweep.
// It is immutable once constructed and consumed exactly once by the
// orchestrator.
type RunConfig struct {
	Rate   string
	Length int
	Burst  int
	Run    int

	Iterations       int
	WarmupIterations int
	WarmupRate       string
}

// Expand generates the full cross product of (rate-length pair) x burst x
// run index. The nested order is a contract: rate-length pairs outermost (in
// the given order), burst sizes in the middle (in the given order), run index
// innermost (ascending from 0). It determines the time-ordering of
// measurement runs.
func (a Axes) Expand() ([]RunConfig, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	configs := make([]RunConfig, 0, len(a.Rates)*len(a.Bursts)*a.Runs)
	for pair := range a.Rates {
		for _, burst := range a.Bursts {
			for run := 0; run < a.Runs; run++ {
				configs = append(configs, RunConfig{
					Rate:             a.Rates[pair],
					Length:           a.Lengths[pair],
					Burst:            burst,
					Run:              run,
					Iterations:       a.Iterations,
					WarmupIterations: a.WarmupIterations,
					WarmupRate:       a.WarmupRate,
				})
			}
		}
	}
	return configs, nil
}

// ParseRate converts a human rate string like "1001K" or "1.5M" into a
// message count per second.
func ParseRate(rate string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(rate)
	multiplier := decimal.NewFromInt(1)

	switch {
	case strings.HasSuffix(trimmed, "K"), strings.HasSuffix(trimmed, "k"):
		multiplier = decimal.NewFromInt(1000)
		trimmed = trimmed[:len(trimmed)-1]
	case strings.HasSuffix(trimmed, "M"), strings.HasSuffix(trimmed, "m"):
		multiplier = decimal.NewFromInt(1000000)
		trimmed = trimmed[:len(trimmed)-1]
	}

	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "could not parse message rate %q", rate)
	}
	if value.Sign() <= 0 {
		return decimal.Decimal{}, errors.Errorf("message rate %q must be positive", rate)
	}

	return value.Mul(multiplier), nil
}
