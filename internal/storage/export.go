package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/stacksim/internal/runner"
)

type ExportData struct {
	Run    RunMetadata    `json:"run"`
	Frames []runner.Frame `json:"frames"`
}

// ExportJSON writes a run's metadata and trace as one JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Frames: frames})
}

// ExportCSV copies a run's trace CSV to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	f, err := s.OpenTrace(runID)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
