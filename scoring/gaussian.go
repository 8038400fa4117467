package scoring

import "github.com/thethongngu/deep-learning-practices/IO"

// GaussianScore is the number of (generated, training) tuple matches over
// len(generated). A generated tuple only counts when all four forms match.
func GaussianScore(generated, training []IO.WordTuple) float64 {
	if len(generated) == 0 {
		return 0
	}
	counts := make(map[IO.WordTuple]int, len(training))
	for _, w := range training {
		counts[w]++
	}
	score := 0
	for _, g := range generated {
		score += counts[g]
	}
	return float64(score) / float64(len(generated))
}
