package trainer

import "github.com/pkg/errors"

// KLSchedule gives the KL weight for a 1-based epoch.
type KLSchedule func(epoch int) float64

// NewKLSchedule builds "constant", "monotonic" or "cyclical" annealing
// that tops out at weight. period is the ramp (monotonic) or cycle
// (cyclical) length in epochs.
func NewKLSchedule(kind string, weight float64, period int) (KLSchedule, error) {
	switch kind {
	case "", "constant":
		return func(int) float64 { return weight }, nil
	case "monotonic":
		if period <= 0 {
			return nil, errors.Errorf("monotonic KL schedule needs a positive period, got %d", period)
		}
		return func(epoch int) float64 {
			return weight * min(1, float64(epoch-1)/float64(period))
		}, nil
	case "cyclical":
		if period <= 1 {
			return nil, errors.Errorf("cyclical KL schedule needs a period > 1, got %d", period)
		}
		half := float64(period) / 2
		return func(epoch int) float64 {
			pos := float64((epoch - 1) % period)
			return weight * min(1, pos/half)
		}, nil
	default:
		return nil, errors.Errorf("unknown KL schedule %q", kind)
	}
}
