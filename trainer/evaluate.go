package trainer

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/cvae"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/scoring"
	"gonum.org/v1/gonum/stat"
)

// Conversion is one scored test line.
type Conversion struct {
	Input, Reference, Output string
	InTense, OutTense        params.Tense
	BLEU                     float64
}

// Evaluator scores free-running conversions of a fixed test set.
// With Parallel set every record is decoded on its own goroutine; the
// model is only read during evaluation.
type Evaluator struct {
	Parallel bool

	model   *cvae.Model
	records []IO.TestRecord
	pairs   []IO.Pair
}

// NewEvaluator encodes every record up front; a character outside the
// table is an error here rather than mid-training.
func NewEvaluator(m *cvae.Model, records []IO.TestRecord) (*Evaluator, error) {
	pairs := make([]IO.Pair, len(records))
	for i, rec := range records {
		p, err := IO.EncodeRecord(m.Vocab, rec)
		if err != nil {
			return nil, err
		}
		pairs[i] = p
	}
	return &Evaluator{
		Parallel: runtime.GOMAXPROCS(0) > 1,
		model:    m,
		records:  records,
		pairs:    pairs,
	}, nil
}

// Evaluate runs every test pair with teacher forcing off and returns the
// mean BLEU-4 together with the individual conversions. Each record gets
// its own generator seeded from rng in order, so the result does not
// depend on Parallel.
func (e *Evaluator) Evaluate(rng *rand.Rand) (float64, []Conversion) {
	if len(e.pairs) == 0 {
		return 0, nil
	}
	seeds := make([][2]uint64, len(e.pairs))
	for i := range seeds {
		seeds[i] = [2]uint64{rng.Uint64(), rng.Uint64()}
	}

	convs := make([]Conversion, len(e.pairs))
	scores := make([]float64, len(e.pairs))
	work := func(i int) {
		r := rand.New(rand.NewPCG(seeds[i][0], seeds[i][1]))
		res := e.model.Forward(e.model.InitState(r), e.pairs[i], 0, r)
		rec := e.records[i]
		scores[i] = scoring.BLEU(res.Word, rec.Reference)
		convs[i] = Conversion{
			Input:     rec.Input,
			Reference: rec.Reference,
			Output:    res.Word,
			InTense:   rec.InTense,
			OutTense:  rec.OutTense,
			BLEU:      scores[i],
		}
	}

	if e.Parallel {
		var wg sync.WaitGroup
		for i := range e.pairs {
			wg.Add(1)
			go func() { defer wg.Done(); work(i) }()
		}
		wg.Wait()
	} else {
		for i := range e.pairs {
			work(i)
		}
	}
	return stat.Mean(scores, nil), convs
}
