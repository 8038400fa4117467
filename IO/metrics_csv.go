package IO

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// CSVMetrics appends one "epoch,metric,value" row per scalar.
type CSVMetrics struct {
	f *os.File
	w *csv.Writer
}

// NewCSVMetrics creates or truncates path and writes the header.
func NewCSVMetrics(path string) (*CSVMetrics, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create metrics dir")
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics csv")
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"epoch", "metric", "value"}); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVMetrics{f: f, w: w}, nil
}

func (m *CSVMetrics) Record(epoch int, name string, value float64) error {
	err := m.w.Write([]string{strconv.Itoa(epoch), name, strconv.FormatFloat(value, 'g', -1, 64)})
	if err != nil {
		return err
	}
	// flush per row so a killed run still leaves its curve behind
	m.w.Flush()
	return m.w.Error()
}

func (m *CSVMetrics) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
