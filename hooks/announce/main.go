// Package main provides a hook that speaks form feedback out loud.
// It uses `say` on macOS and `espeak` elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Rep mirrors the fields of a repetition the hook needs.
type Rep struct {
	Exercise      string  `json:"exercise"`
	RepIndex      int     `json:"rep_index"`
	PrimaryMetric float64 `json:"primary_metric"`
	ErrorTag      string  `json:"error_tag"`
	Feedback      string  `json:"feedback"`
}

// Request represents the input from the hook executor.
type Request struct {
	Event  string          `json:"event"`
	RunID  string          `json:"runId"`
	Rep    Rep             `json:"rep"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional hook configuration from hook.json.
type Config struct {
	Voice  string `json:"voice"`
	DryRun bool   `json:"dryRun"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "rep" {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	text := phrase(req.Rep)
	if !cfg.DryRun {
		if err := speak(text, cfg.Voice); err != nil {
			writeErrorResponse(fmt.Sprintf("speak failed: %v", err))
			return
		}
	}

	data, _ := json.Marshal(map[string]string{"spoken": text})
	writeResponse(Response{Success: true, Data: data})
}

// phrase builds the sentence spoken for a repetition.
func phrase(rep Rep) string {
	if rep.ErrorTag == "" || rep.ErrorTag == "NONE" {
		return fmt.Sprintf("Rep %d. %s.", rep.RepIndex, rep.Feedback)
	}
	issue := strings.ToLower(strings.ReplaceAll(rep.ErrorTag, "_", " "))
	return fmt.Sprintf("Rep %d. %s. Watch the %s.", rep.RepIndex, rep.Feedback, issue)
}

func speak(text, voice string) error {
	bin := "espeak"
	if runtime.GOOS == "darwin" {
		bin = "say"
	}

	args := []string{text}
	if voice != "" {
		args = append([]string{"-v", voice}, args...)
	}

	output, err := exec.Command(bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
