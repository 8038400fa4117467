package trainer

import (
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/cvae"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/utils"
)

// SamplePrior draws n latents from N(0, I) and decodes each one under all
// four tenses, giving n candidate word tuples.
func SamplePrior(m *cvae.Model, n int, rng *rand.Rand) []IO.WordTuple {
	out := make([]IO.WordTuple, n)
	for i := range out {
		z := utils.Vector(utils.NormalArray(m.LatentSize, rng))
		for t := params.Tense(0); t < params.NumTenses; t++ {
			out[i][t] = m.Generate(z, t)
		}
	}
	return out
}
