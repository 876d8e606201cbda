package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	snapshotsFile = "snapshots.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Config     config.Config      `json:"config"`
	Steps      int                `json:"steps"`
	Phase      string             `json:"phase"`
	Injected   float64            `json:"injected_joules"`
	Conductor  float64            `json:"final_conductor_temp"`
	Snapshots  int                `json:"snapshots"`
	Metrics    map[string]float64 `json:"metrics"`
	RenderErrs []string           `json:"render_errors,omitempty"`
}

// Save writes the run metadata and every recorded snapshot under a new run
// directory and returns its id.
func (s *Store) Save(name string, cfg *config.Config, snaps []sim.Snapshot, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: now,
		Config:    *cfg,
		Snapshots: len(snaps),
		Metrics:   map[string]float64{},
	}
	if result != nil {
		meta.Steps = result.StepsTaken
		meta.Phase = result.Phase.String()
		meta.Injected = result.Injected
		meta.Conductor = result.Final.Conductor()
		for k, v := range result.Metrics {
			meta.Metrics[k] = v
		}
		for _, err := range result.Errors {
			meta.RenderErrs = append(meta.RenderErrs, err.Error())
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, snapshotsFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteCSV(f, snaps); err != nil {
		return "", err
	}
	return runID, f.Close()
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSnapshots reads the snapshot table back. Time step and ambient come
// from the stored configuration.
func (s *Store) LoadSnapshots(runID string) ([]sim.Snapshot, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.Dir(runID), snapshotsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snaps, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	for i := range snaps {
		snaps[i].TimeStep = meta.Config.TimeStep
		snaps[i].Ambient = meta.Config.AmbientTemperature
	}
	return snaps, nil
}

// WriteCSV writes one row per snapshot: step, days, then one column per shell.
func WriteCSV(w io.Writer, snaps []sim.Snapshot) error {
	cw := csv.NewWriter(w)

	shells := 0
	if len(snaps) > 0 {
		shells = len(snaps[0].Temperatures)
	}
	header := []string{"step", "days"}
	for i := 0; i < shells; i++ {
		header = append(header, fmt.Sprintf("r%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, snap := range snaps {
		row := make([]string, 0, len(snap.Temperatures)+2)
		row = append(row, strconv.Itoa(snap.Step), strconv.Itoa(snap.Days()))
		for _, t := range snap.Temperatures {
			row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the output of WriteCSV. Rows with an unparseable step are
// rejected rather than skipped so that snapshot order is never silently lost.
func ReadCSV(r io.Reader) ([]sim.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Snapshot{}, nil
	}

	snaps := make([]sim.Snapshot, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		temps := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			temps = append(temps, v)
		}
		snaps = append(snaps, sim.Snapshot{Step: step, Temperatures: temps})
	}
	return snaps, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}
