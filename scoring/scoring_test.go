package scoring

import (
	"math"
	"testing"

	"github.com/thethongngu/deep-learning-practices/IO"
)

func TestBLEUExactMatch(t *testing.T) {
	w := IO.WordTuple{"consult", "consults", "consulting", "consulted"}
	if got := BLEU("consulted", w[3]); got != 1.0 {
		t.Fatalf("BLEU(copy) = %g, want 1", got)
	}
	// three-letter references use trigram weights
	if got := BLEU("ran", "ran"); math.Abs(got-1) > 1e-12 {
		t.Fatalf("BLEU(ran, ran) = %g", got)
	}
}

func TestBLEUPartialOverlap(t *testing.T) {
	got := BLEU("access", "accessed")
	if got <= 0 || got >= 1 {
		t.Fatalf("BLEU(access, accessed) = %g, want in (0, 1)", got)
	}
	// every n-gram of "access" is in "accessed"; only the brevity penalty applies
	if want := math.Exp(1 - 8.0/6.0); math.Abs(got-want) > 1e-12 {
		t.Fatalf("BLEU = %g, want %g", got, want)
	}
}

func TestBLEUSmoothing(t *testing.T) {
	// unigrams match, no bigram does: smoothed, still positive
	got := BLEU("ab", "ba")
	if got <= 0 || got >= 0.5 {
		t.Fatalf("BLEU(ab, ba) = %g", got)
	}
	if BLEU("xyz", "abc") != 0 {
		t.Fatal("no unigram overlap must score 0")
	}
	if BLEU("", "abc") != 0 {
		t.Fatal("empty output must score 0")
	}
}

func TestGaussianScore(t *testing.T) {
	training := []IO.WordTuple{
		{"consult", "consults", "consulting", "consulted"},
		{"plead", "pleads", "pleading", "pleaded"},
	}
	if got := GaussianScore(training[:1], training); got != 1.0 {
		t.Fatalf("score = %g, want 1", got)
	}
	miss := []IO.WordTuple{{"consult", "consults", "consulting", "consult"}}
	if got := GaussianScore(miss, training); got != 0 {
		t.Fatalf("score = %g, want 0", got)
	}
	mixed := []IO.WordTuple{training[1], miss[0]}
	if got := GaussianScore(mixed, training); got != 0.5 {
		t.Fatalf("score = %g, want 0.5", got)
	}
	if GaussianScore(nil, training) != 0 {
		t.Fatal("empty input must score 0")
	}
}
