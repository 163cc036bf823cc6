package exercise

import (
	"fmt"
	"strings"
)

// Summary condenses the repetitions of a run. ErrorMetricMin and
// ErrorMetricMax bound the primary metric of faulty reps.
type Summary struct {
	Exercise       Exercise   `json:"exercise,omitempty"`
	TotalReps      int        `json:"total_reps"`
	FaultyReps     int        `json:"faulty_reps"`
	Issues         []ErrorTag `json:"issues"`
	ErrorMetricMin float64    `json:"error_metric_min,omitempty"`
	ErrorMetricMax float64    `json:"error_metric_max,omitempty"`
}

// Summarize builds a Summary. TotalReps is the highest rep index seen.
func Summarize(events []RepEvent) Summary {
	s := Summary{Issues: []ErrorTag{}}
	seen := make(map[ErrorTag]bool)

	for _, ev := range events {
		if s.Exercise == "" {
			s.Exercise = ev.Exercise
		}
		if ev.RepIndex > s.TotalReps {
			s.TotalReps = ev.RepIndex
		}
		if !ev.Faulty() {
			continue
		}

		if s.FaultyReps == 0 || ev.PrimaryMetric < s.ErrorMetricMin {
			s.ErrorMetricMin = ev.PrimaryMetric
		}
		if s.FaultyReps == 0 || ev.PrimaryMetric > s.ErrorMetricMax {
			s.ErrorMetricMax = ev.PrimaryMetric
		}
		s.FaultyReps++

		if !seen[ev.ErrorTag] {
			seen[ev.ErrorTag] = true
			s.Issues = append(s.Issues, ev.ErrorTag)
		}
	}

	return s
}

// Text renders the summary as a short paragraph.
func (s Summary) Text() string {
	if s.TotalReps == 0 {
		return "No workout data analyzed yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User completed %d reps. ", s.TotalReps)

	if len(s.Issues) == 0 {
		b.WriteString("The form was perfect across all reps.")
		return b.String()
	}

	tags := make([]string, len(s.Issues))
	for i, t := range s.Issues {
		tags[i] = string(t)
	}
	fmt.Fprintf(&b, "Issues found: %s. ", strings.Join(tags, ", "))

	label := "Primary metrics"
	if cfg, err := ConfigFor(s.Exercise); err == nil {
		label = cfg.MetricLabel
	}
	fmt.Fprintf(&b, "%s during errors ranged from %.1f° to %.1f°.", label, s.ErrorMetricMin, s.ErrorMetricMax)

	return b.String()
}
