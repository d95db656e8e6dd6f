package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/tdsim/internal/sim"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes the tabular view of r: the time in ms followed by
// sim.Columns().
func WriteCSV(w io.Writer, r *sim.VoltageResponse) error {
	cw := csv.NewWriter(w)

	header := append([]string{timeColumn}, sim.Columns()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, s := range r.Samples() {
		record[0] = formatFloat(s.T)
		for i, v := range s.Row() {
			record[i+1] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTrajectoryCSV writes a stored trajectory back out in the same
// layout it was saved in.
func WriteTrajectoryCSV(w io.Writer, tr *Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tr.Columns); err != nil {
		return err
	}
	for _, row := range tr.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type ExportData struct {
	Run        *RunMetadata `json:"run"`
	Trajectory *Trajectory  `json:"trajectory"`
}

func ExportJSON(w io.Writer, meta *RunMetadata, tr *Trajectory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Trajectory: tr})
}

// ExportRun loads a stored run and writes it as JSON.
func (s *Store) ExportRun(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, meta, tr)
}
