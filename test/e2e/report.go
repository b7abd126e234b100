package e2e

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RunReport aggregates checker results for one harness run. Each run gets
// a unique id so interleaved logs from repeated sessions stay attributable.
type RunReport struct {
	RunID     string         `yaml:"run_id"`
	StartedAt time.Time      `yaml:"started_at"`
	Duration  time.Duration  `yaml:"duration"`
	Results   []ReportResult `yaml:"results"`
	Passed    int            `yaml:"passed"`
	Failed    int            `yaml:"failed"`
}

// ReportResult is the serializable form of a checker Result.
type ReportResult struct {
	Checker string `yaml:"checker"`
	Passed  bool   `yaml:"passed"`
	Message string `yaml:"message"`
}

// NewRunReport starts an empty report stamped with a fresh run id.
func NewRunReport() *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Add records checker results, updating the pass/fail tallies.
func (r *RunReport) Add(results ...Result) {
	for _, res := range results {
		r.Results = append(r.Results, ReportResult{
			Checker: res.Checker,
			Passed:  res.Passed,
			Message: res.Message,
		})
		if res.Passed {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}

// Finish stamps the total duration. Call once, after the last Add.
func (r *RunReport) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Success reports whether every recorded result passed.
func (r *RunReport) Success() bool {
	return r.Failed == 0
}

// WriteYAML renders the report as YAML.
func (r *RunReport) WriteYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(r)
}

// WriteText renders a human-readable summary table.
func (r *RunReport) WriteText(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond)))
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("  [%s] %-16s %s\n", status, res.Checker, res.Message))
	}
	sb.WriteString(fmt.Sprintf("%d passed, %d failed\n", r.Passed, r.Failed))
	_, err := io.WriteString(w, sb.String())
	return err
}
