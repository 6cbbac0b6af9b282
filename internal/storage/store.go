package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/runner"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
	configFile   = "config.yaml"
)

var traceHeader = []string{"time", "live", "total", "culled", "kinetic_energy", "interval_ms", "spawn_state"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Width      float64            `json:"width"`
	Height     float64            `json:"height"`
	MaxObjects int                `json:"max_objects"`
	HardLimit  int                `json:"hard_limit"`
	Metrics    map[string]float64 `json:"metrics"`
	Final      lifecycle.Stats    `json:"final"`
}

// Save writes one run under a fresh id and returns the id.
func (s *Store) Save(preset string, cfg *config.Config, result *runner.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", preset, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Preset:     preset,
		Timestamp:  time.Now(),
		Seed:       result.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Width:      cfg.Width,
		Height:     cfg.Height,
		MaxObjects: cfg.MaxObjects,
		HardLimit:  cfg.HardLimit,
		Metrics:    result.Metrics,
		Final:      result.Final,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	run := cfg.Clone()
	run.Seed = result.Seed
	if err := config.Save(filepath.Join(runDir, configFile), run); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteTrace(f, result.Frames); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTrace writes frames as CSV with a header row.
func WriteTrace(w io.Writer, frames []runner.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}
	for _, f := range frames {
		row := []string{
			strconv.FormatFloat(f.T, 'f', 6, 64),
			strconv.Itoa(f.Live),
			strconv.Itoa(f.Total),
			strconv.FormatUint(f.Culled, 10),
			strconv.FormatFloat(f.KineticEnergy, 'f', 6, 64),
			strconv.FormatFloat(f.IntervalMs, 'f', 3, 64),
			f.SpawnState,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns every stored run, newest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadConfig returns the exact configuration a run used.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	path := filepath.Join(s.baseDir, runID, configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return config.Load(path)
}

func (s *Store) LoadTrace(runID string) ([]runner.Frame, error) {
	f, err := s.OpenTrace(runID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []runner.Frame{}, nil
	}

	frames := make([]runner.Frame, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(traceHeader) {
			continue
		}
		frame, err := parseFrame(rec)
		if err != nil {
			continue
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// OpenTrace opens the raw trace CSV. The caller closes it.
func (s *Store) OpenTrace(runID string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return f, nil
}

func parseFrame(rec []string) (runner.Frame, error) {
	var (
		f   runner.Frame
		err error
	)
	if f.T, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return f, err
	}
	if f.Live, err = strconv.Atoi(rec[1]); err != nil {
		return f, err
	}
	if f.Total, err = strconv.Atoi(rec[2]); err != nil {
		return f, err
	}
	if f.Culled, err = strconv.ParseUint(rec[3], 10, 64); err != nil {
		return f, err
	}
	if f.KineticEnergy, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return f, err
	}
	if f.IntervalMs, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return f, err
	}
	f.SpawnState = rec[6]
	return f, nil
}
