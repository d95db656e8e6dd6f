package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/tdsim/internal/analysis"
	"github.com/san-kum/tdsim/internal/config"
	"github.com/san-kum/tdsim/internal/metrics"
	"github.com/san-kum/tdsim/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	timeColumn     = "t(ms)"
)

var ErrInvalidRunID = errors.New("invalid run id")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Protocol  string             `json:"protocol"`
	Method    string             `json:"method"`
	TMax      float64            `json:"t_max"`
	Config    *config.Config     `json:"config"`
	Summary   analysis.Summary   `json:"summary"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes the configuration, summary and full trajectory of a run
// into a fresh directory and returns its id.
func (s *Store) Save(cfg *config.Config, r *sim.VoltageResponse) (string, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Protocol.Kind
	}
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      cfg.Name,
		Timestamp: time.Now().UTC(),
		Protocol:  cfg.Protocol.Kind,
		Method:    r.Method(),
		TMax:      r.TMax(),
		Config:    cfg,
		Summary:   analysis.Summarize(r),
		Metrics:   metrics.Of(r),
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), r); err != nil {
		return "", fmt.Errorf("write trajectory: %w", err)
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
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

func writeTrajectory(path string, r *sim.VoltageResponse) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteCSV(f, r); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, oldest first. Directories without
// valid metadata are skipped.
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

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runID, err)
	}
	return &meta, nil
}

// Trajectory is the tabular form of a stored run. Rows follow Columns;
// the first column is the time in ms.
type Trajectory struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Column returns one named column, or nil if there is none.
func (tr *Trajectory) Column(name string) []float64 {
	idx := -1
	for i, c := range tr.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(tr.Rows))
	for i, row := range tr.Rows {
		out[i] = row[idx]
	}
	return out
}

func (tr *Trajectory) Times() []float64 { return tr.Column(timeColumn) }

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trajectory %s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read trajectory %s: empty file", runID)
	}

	tr := &Trajectory{
		Columns: records[0],
		Rows:    make([][]float64, 0, len(records)-1),
	}
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("trajectory %s line %d: %w", runID, i+2, err)
			}
			row[j] = v
		}
		tr.Rows = append(tr.Rows, row)
	}
	return tr, nil
}

func (s *Store) Delete(runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}
