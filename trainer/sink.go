package trainer

import "github.com/pkg/errors"

// Metric names written every epoch.
const (
	MetricEntropy  = "Entropy/train"
	MetricKL       = "KL/train"
	MetricKLWeight = "KLWeight/train"
	MetricBLEU     = "BLEU/test"
	MetricGaussian = "Gaussian/test"
)

// MetricsSink receives scalar series keyed by epoch.
type MetricsSink interface {
	Record(epoch int, name string, value float64) error
}

// MultiSink fans a record out to every sink and returns the first error.
type MultiSink []MetricsSink

func (ms MultiSink) Record(epoch int, name string, value float64) error {
	var first error
	for _, s := range ms {
		if err := s.Record(epoch, name, value); err != nil && first == nil {
			first = errors.Wrapf(err, "record %s", name)
		}
	}
	return first
}

// MemorySink keeps every series in memory; the CLI plots from it.
type MemorySink struct {
	Series map[string][]float64
}

func NewMemorySink() *MemorySink { return &MemorySink{Series: map[string][]float64{}} }

func (m *MemorySink) Record(_ int, name string, value float64) error {
	m.Series[name] = append(m.Series[name], value)
	return nil
}
