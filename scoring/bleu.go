// Package scoring holds the evaluation metrics: character BLEU-4 for
// conversions and the Gaussian score for words sampled from the prior.
package scoring

import "math"

// smoothing method 1: a zero n-gram match count becomes epsilon
const smoothEpsilon = 0.1

// BLEU is sentence-level BLEU of output against one reference, counted
// over characters, with method-1 smoothing. References of length 3 use
// trigram weights (0.33, 0.33, 0.33), everything else BLEU-4 weights.
func BLEU(output, reference string) float64 {
	weights := []float64{0.25, 0.25, 0.25, 0.25}
	if len([]rune(reference)) == 3 {
		weights = []float64{0.33, 0.33, 0.33}
	}
	return SentenceBLEU([]rune(output), []rune(reference), weights)
}

// SentenceBLEU follows NLTK's sentence_bleu for one reference.
func SentenceBLEU(hyp, ref []rune, weights []float64) float64 {
	if len(hyp) == 0 {
		return 0
	}
	logSum := 0.0
	for i, w := range weights {
		num, den := modifiedPrecision(hyp, ref, i+1)
		if i == 0 && num == 0 {
			// no unigram overlap at all
			return 0
		}
		p := float64(num) / float64(den)
		if num == 0 {
			p = smoothEpsilon / float64(den)
		}
		logSum += w * math.Log(p)
	}
	return brevityPenalty(len(ref), len(hyp)) * math.Exp(logSum)
}

// modifiedPrecision returns clipped n-gram matches and max(1, #hyp n-grams).
func modifiedPrecision(hyp, ref []rune, n int) (num, den int) {
	hc := ngramCounts(hyp, n)
	rc := ngramCounts(ref, n)
	total := 0
	for g, c := range hc {
		total += c
		num += min(c, rc[g])
	}
	return num, max(1, total)
}

func ngramCounts(s []rune, n int) map[string]int {
	out := make(map[string]int)
	for i := 0; i+n <= len(s); i++ {
		out[string(s[i:i+n])]++
	}
	return out
}

func brevityPenalty(refLen, hypLen int) float64 {
	if hypLen > refLen {
		return 1
	}
	if hypLen == 0 {
		return 0
	}
	return math.Exp(1 - float64(refLen)/float64(hypLen))
}
