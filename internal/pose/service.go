package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ServiceIdleTimeout is how long the pose service may stay unused before it is shut down.
const ServiceIdleTimeout = 30 * time.Second

const serviceScriptName = "pose_service.py"

// ErrServiceNotFound is returned when the pose service script cannot be located.
var ErrServiceNotFound = errors.New(serviceScriptName + " not found")

// ServiceDetector implements Detector using a Python pose-estimation subprocess.
//
// Each request is a 4-byte big-endian length followed by a JPEG image on the
// service's stdin; the service replies with one JSON line on stdout.
type ServiceDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastUsed   time.Time
	idleTimer  *time.Timer
}

// NewServiceDetector creates a new pose service detector.
// The Python process is started lazily on first detection.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findServiceScript()
	} else if _, err := os.Stat(scriptPath); err != nil {
		scriptPath = ""
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	return &ServiceDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns the keypoints of the first detected person.
func (d *ServiceDetector) Detect(frame *gocv.Mat) (*Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, nil
	}

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFrame(d.stdin, buf.GetBytes()); err != nil {
		return nil, err
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	obs, err := parseServiceResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return obs, nil
}

// Close shuts down the Python process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--min-conf", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64))

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	log.Debugf("pose service started: %s %s", pythonPath, d.scriptPath)
	return nil
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(ServiceIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Warnf("pose service idle shutdown: %s", err)
		}
	})
}

// writeFrame writes one length-prefixed frame to the service.
func writeFrame(w io.Writer, data []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// serviceResponse is the JSON structure written by the Python service.
// Each person is a list of [x, y, confidence] triples in COCO order.
type serviceResponse struct {
	People [][][3]float64 `json:"people"`
}

// parseServiceResponse decodes one response line and keeps the first person.
func parseServiceResponse(line []byte) (*Observation, error) {
	var response serviceResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(response.People) == 0 {
		return nil, nil
	}

	obs := observationFromTriples(response.People[0])
	return &obs, nil
}

func observationFromTriples(triples [][3]float64) Observation {
	var obs Observation
	for i := 0; i < NumKeypoints && i < len(triples); i++ {
		obs.Keypoints[i] = Keypoint{
			Point:      Point{X: triples[i][0], Y: triples[i][1]},
			Confidence: triples[i][2],
		}
	}
	return obs
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScriptName),
		filepath.Join("..", "scripts", serviceScriptName),
		filepath.Join(execDir, "scripts", serviceScriptName),
		filepath.Join(os.Getenv("HOME"), ".formcheck", "scripts", serviceScriptName),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".formcheck/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
