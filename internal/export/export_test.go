package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/tdsim/internal/sim"
	"github.com/san-kum/tdsim/internal/storage"
)

func trajectory() *storage.Trajectory {
	tr := &storage.Trajectory{Columns: append([]string{"t(ms)"}, sim.Columns()...)}
	for i := 0; i < 50; i++ {
		t := float64(i) * 100
		row := make([]float64, len(tr.Columns))
		row[0] = t
		row[1] = t * 1e-3
		for j := 2; j < len(row); j++ {
			row[j] = float64(j) - float64(i)*0.5
		}
		tr.Rows = append(tr.Rows, row)
	}
	return tr
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	tr := trajectory()

	for _, fig := range Figures() {
		for _, ext := range []string{".png", ".svg", ".pdf"} {
			path := filepath.Join(dir, "out", fig+ext)
			if err := Render(path, tr, Figure(fig), "test"); err != nil {
				t.Fatalf("Render(%s%s): %v", fig, ext, err)
			}
			info, err := os.Stat(path)
			if err != nil || info.Size() == 0 {
				t.Errorf("%s not written: %v", path, err)
			}
		}
	}
}

func TestRender_SVGContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.svg")
	if err := Render(path, trajectory(), FigureVoltages, ""); err != nil {
		t.Fatalf("Render: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("output is not an svg document")
	}
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	tr := trajectory()

	if err := Render(filepath.Join(dir, "x.png"), tr, "spectrum", ""); err == nil {
		t.Error("expected error for unknown figure")
	}
	if err := Render(filepath.Join(dir, "x.bmp"), tr, FigureVoltages, ""); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := Render(filepath.Join(dir, "x.png"), &storage.Trajectory{Columns: tr.Columns}, FigureVoltages, ""); err == nil {
		t.Error("expected error for empty trajectory")
	}
	if err := Render(filepath.Join(dir, "x.png"), &storage.Trajectory{Columns: []string{"t(ms)"}, Rows: [][]float64{{0}}}, FigureVoltages, ""); err == nil {
		t.Error("expected error for missing columns")
	}
}
