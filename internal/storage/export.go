package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/cableheat/internal/sim"
)

type ExportData struct {
	Run       RunMetadata    `json:"run"`
	Radii     []int          `json:"radii_cm"`
	Snapshots []sim.Snapshot `json:"snapshots"`
}

// ExportJSON writes a stored run with its snapshots as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := s.LoadSnapshots(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:       *meta,
		Radii:     make([]int, meta.Config.ShellCount),
		Snapshots: snaps,
	}
	for i := range data.Radii {
		data.Radii[i] = i
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONFile is ExportJSON into a file, or stdout when path is empty or "-".
func (s *Store) ExportJSONFile(path, runID string) error {
	if path == "" || path == "-" {
		return s.ExportJSON(os.Stdout, runID)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.ExportJSON(f, runID); err != nil {
		return err
	}
	return f.Close()
}

// ExportCSV copies the stored snapshot table to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	snaps, err := s.LoadSnapshots(runID)
	if err != nil {
		return err
	}
	return WriteCSV(w, snaps)
}
