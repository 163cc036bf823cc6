package api

import (
	"net/http"

	"github.com/ayusman/formcheck/internal/exercise"
)

type thresholdResponse struct {
	Direction string  `json:"direction"`
	Degrees   float64 `json:"degrees"`
}

type exerciseResponse struct {
	Name         string            `json:"name"`
	Label        string            `json:"label"`
	InitialPhase exercise.Phase    `json:"initial_phase"`
	Enter        thresholdResponse `json:"enter"`
	Close        thresholdResponse `json:"close"`
	Metric       string            `json:"metric"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toThreshold(t exercise.Threshold) thresholdResponse {
	dir := "below"
	if t.Direction == exercise.Above {
		dir = "above"
	}
	return thresholdResponse{Direction: dir, Degrees: t.Degrees}
}

// ExercisesHandler lists the supported exercises and their thresholds.
type ExercisesHandler struct{}

// NewExercisesHandler creates a new ExercisesHandler.
func NewExercisesHandler() *ExercisesHandler {
	return &ExercisesHandler{}
}

func (h *ExercisesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := listExercisesResponse{Exercises: []exerciseResponse{}}
	for _, e := range exercise.All() {
		cfg, err := exercise.ConfigFor(e)
		if err != nil {
			continue
		}
		response.Exercises = append(response.Exercises, exerciseResponse{
			Name:         string(e),
			Label:        e.Label(),
			InitialPhase: cfg.InitialPhase,
			Enter:        toThreshold(cfg.Enter),
			Close:        toThreshold(cfg.Close),
			Metric:       cfg.MetricLabel,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
