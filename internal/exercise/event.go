package exercise

import "github.com/ayusman/formcheck/internal/pose"

// ErrorTag labels the form fault found in a repetition.
type ErrorTag string

const (
	TagNone                  ErrorTag = "NONE"
	TagShallowSquat          ErrorTag = "SHALLOW_SQUAT"
	TagCriticalShallow       ErrorTag = "CRITICAL_SHALLOW"
	TagIncompleteContraction ErrorTag = "INCOMPLETE_CONTRACTION"
	TagElbowSwinging         ErrorTag = "ELBOW_SWINGING"
	TagIncompleteLockout     ErrorTag = "INCOMPLETE_LOCKOUT"
	TagShortRangeOfMotion    ErrorTag = "SHORT_RANGE_OF_MOTION"
)

// Feedback is the outcome of classifying one repetition.
type Feedback struct {
	Text string
	Tag  ErrorTag
}

// RepEvent describes one completed repetition. It is emitted once, when the
// repetition closes, and never revised.
type RepEvent struct {
	Exercise        Exercise  `json:"exercise"`
	RepIndex        int       `json:"rep_index"`
	PrimaryMetric   float64   `json:"primary_metric"`
	SecondaryMetric float64   `json:"secondary_metric"`
	ErrorTag        ErrorTag  `json:"error_tag"`
	Feedback        string    `json:"feedback"`
	Side            pose.Side `json:"side"`
	Frame           int       `json:"frame"`
}

// Faulty reports whether the repetition was flagged with a form fault.
func (e RepEvent) Faulty() bool {
	return e.ErrorTag != TagNone && e.ErrorTag != ""
}
