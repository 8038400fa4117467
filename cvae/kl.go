package cvae

import (
	"math"

	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// KLDivergence is KL(N(mean, diag(exp(logvar))) || N(0, I)):
// -0.5 * sum(1 + logvar - mean^2 - exp(logvar)).
func KLDivergence(mean, logvar *mat.Dense) float64 {
	r, _ := mean.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		m, lv := mean.At(i, 0), logvar.At(i, 0)
		s += 1 + lv - m*m - math.Exp(lv)
	}
	return -0.5 * s
}

// KLGrad returns dKL/dmean and dKL/dlogvar scaled by w.
func KLGrad(mean, logvar *mat.Dense, w float64) (dMean, dLogvar *mat.Dense) {
	dMean = utils.Scale(w, mean)
	dLogvar = utils.Apply(func(_, _ int, lv float64) float64 {
		return w * 0.5 * (math.Exp(lv) - 1)
	}, logvar).(*mat.Dense)
	return dMean, dLogvar
}
