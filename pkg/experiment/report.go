package experiment

import (
	"fmt"
	"io"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// runKey groups repeated runs of the same configuration.
type runKey struct {
	Scenario string
	Rate     string
	Length   int
	Burst    int
}

// Report accumulates per-run client throughput samples and renders a summary
// table after the sweep. It is used from the single control goroutine only.
type Report struct {
	order   []runKey
	samples map[runKey][]float64
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{samples: map[runKey][]float64{}}
}

// Add records the result of one run.
func (r *Report) Add(scenario string, config RunConfig, result ClientResult) {
	key := runKey{Scenario: scenario, Rate: config.Rate, Length: config.Length, Burst: config.Burst}
	if _, seen := r.samples[key]; !seen {
		r.order = append(r.order, key)
	}
	r.samples[key] = append(r.samples[key], result.Throughput)
}

// Render writes the summary table to w, grouped by (scenario, rate, length,
// burst) in first-seen order.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scenario", "Rate", "Length", "Burst", "Runs", "Mean msg/s", "StdDev"})

	for _, key := range r.order {
		samples := r.samples[key]
		mean, err := stats.Mean(samples)
		if err != nil {
			mean = 0
		}
		stddev, err := stats.StandardDeviation(samples)
		if err != nil {
			stddev = 0
		}

		table.Append([]string{
			key.Scenario,
			key.Rate,
			fmt.Sprintf("%d", key.Length),
			fmt.Sprintf("%d", key.Burst),
			fmt.Sprintf("%d", len(samples)),
			fmt.Sprintf("%.0f", mean),
			fmt.Sprintf("%.0f", stddev),
		})
	}

	table.Render()
}

// WriteFile renders the summary into the file at path.
func (r *Report) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create summary file %q", path)
	}
	defer file.Close()

	r.Render(file)
	return nil
}
