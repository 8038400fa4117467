// Package trainer runs the CVAE training loop: 16 tense pairs per word,
// one optimizer step per pair, evaluation and best-BLEU checkpointing
// after every epoch.
package trainer

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/cvae"
	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/scoring"
	"github.com/thethongngu/deep-learning-practices/utils"
)

type Options struct {
	Config         params.TrainingConfig
	Words          []IO.WordTuple
	Tests          []IO.TestRecord
	Sink           MetricsSink // nil records nothing
	Out            io.Writer   // progress lines; nil discards
	CheckpointPath string      // empty disables checkpointing
}

type Trainer struct {
	Model *cvae.Model
	Eval  *Evaluator

	cfg      params.TrainingConfig
	words    []IO.WordTuple
	pairs    [][]IO.Pair // 16 per word, encoded once
	sink     MetricsSink
	out      io.Writer
	ckpt     string
	encOpt   optimizations.Optimizer
	decOpt   optimizations.Optimizer
	schedule KLSchedule
	rng      *rand.Rand

	BestBLEU  float64
	BestEpoch int
}

func New(m *cvae.Model, opts Options, rng *rand.Rand) (*Trainer, error) {
	cfg := opts.Config
	pairs := make([][]IO.Pair, len(opts.Words))
	for i, w := range opts.Words {
		ps, err := IO.GeneratePairs(m.Vocab, w)
		if err != nil {
			return nil, errors.Wrapf(err, "training tuple %d", i)
		}
		pairs[i] = ps
	}
	eval, err := NewEvaluator(m, opts.Tests)
	if err != nil {
		return nil, errors.Wrap(err, "test set")
	}
	encOpt, err := optimizations.New(cfg.Optimizer, m.EncoderParams(), cfg.LearningRate,
		cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, cfg.WeightDecay)
	if err != nil {
		return nil, err
	}
	decOpt, err := optimizations.New(cfg.Optimizer, m.DecoderParams(), cfg.LearningRate,
		cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, cfg.WeightDecay)
	if err != nil {
		return nil, err
	}
	schedule, err := NewKLSchedule(cfg.KLSchedule, cfg.KLWeight, cfg.KLAnnealEpochs)
	if err != nil {
		return nil, err
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	sink := opts.Sink
	if sink == nil {
		sink = MultiSink(nil)
	}
	return &Trainer{
		Model:    m,
		Eval:     eval,
		cfg:      cfg,
		words:    opts.Words,
		pairs:    pairs,
		sink:     sink,
		out:      out,
		ckpt:     opts.CheckpointPath,
		encOpt:   encOpt,
		decOpt:   decOpt,
		schedule: schedule,
		rng:      rng,
	}, nil
}

// TrainEpoch makes one pass over every word tuple and returns the summed
// reconstruction and KL losses divided by the number of tuples.
func (t *Trainer) TrainEpoch(klWeight float64) (avgEntropy, avgKL float64) {
	if len(t.pairs) == 0 {
		return 0, 0
	}
	order := make([]int, len(t.pairs))
	for i := range order {
		order[i] = i
	}
	if t.cfg.Shuffle {
		t.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var sumEntropy, sumKL float64
	for _, idx := range order {
		for _, p := range t.pairs[idx] {
			t.encOpt.ZeroGrad()
			t.decOpt.ZeroGrad()

			res := t.Model.Forward(t.Model.InitState(t.rng), p, t.cfg.TeacherForcingRatio, t.rng)
			t.Model.Backward(res, klWeight)
			if t.cfg.GradClip > 0 {
				utils.ClipGrads(t.cfg.GradClip, optimizations.Grads(t.Model.Params())...)
			}
			t.encOpt.Step()
			t.decOpt.Step()

			sumEntropy += res.Recon
			sumKL += res.KL
		}
	}
	n := float64(len(t.pairs))
	return sumEntropy / n, sumKL / n
}

// Summary describes a finished (or cancelled) run.
type Summary struct {
	Epochs    int
	BestBLEU  float64
	BestEpoch int
}

// Train runs cfg.Epochs epochs. ctx is checked between epochs only.
func (t *Trainer) Train(ctx context.Context) (Summary, error) {
	start := time.Now()
	sum := Summary{}
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		w := t.schedule(epoch)
		avgEntropy, avgKL := t.TrainEpoch(w)
		bleu, _ := t.Eval.Evaluate(t.rng)

		if bleu > t.BestBLEU {
			t.BestBLEU = bleu
			t.BestEpoch = epoch
			t.saveBest(epoch, bleu)
		}

		gauss := 0.0
		if t.cfg.PriorSamples > 0 {
			gauss = scoring.GaussianScore(SamplePrior(t.Model, t.cfg.PriorSamples, t.rng), t.words)
		}

		for _, m := range []struct {
			name string
			v    float64
		}{
			{MetricEntropy, avgEntropy},
			{MetricKL, avgKL},
			{MetricKLWeight, w},
			{MetricBLEU, bleu},
			{MetricGaussian, gauss},
		} {
			if err := t.sink.Record(epoch, m.name, m.v); err != nil {
				fmt.Fprintf(t.out, "metrics: %v\n", err)
			}
		}

		fmt.Fprintf(t.out, "%s (%d %d%%) Entropy: %.4f KL: %.4f BLEU-4: %.4f Gaussian: %.4f\n",
			timeSince(start, float64(epoch)/float64(t.cfg.Epochs)), epoch, epoch*100/t.cfg.Epochs,
			avgEntropy, avgKL, bleu, gauss)

		sum.Epochs = epoch
	}
	sum.BestBLEU, sum.BestEpoch = t.BestBLEU, t.BestEpoch
	return sum, nil
}

// saveBest is best-effort: a failed write only loses this epoch's weights.
func (t *Trainer) saveBest(epoch int, bleu float64) {
	if t.ckpt == "" {
		return
	}
	err := cvae.SaveModel(t.Model, t.ckpt, cvae.CheckpointMeta{Epoch: epoch, BLEU: bleu})
	if err != nil {
		fmt.Fprintf(t.out, "checkpoint not saved: %v\n", err)
		return
	}
	fmt.Fprintln(t.out, "New checkpoint saved!")
}

func asMinutes(d time.Duration) string {
	s := d.Seconds()
	m := math.Floor(s / 60)
	return fmt.Sprintf("%dm %ds", int(m), int(s-m*60))
}

// timeSince prints elapsed and estimated remaining time given the fraction done.
func timeSince(since time.Time, percent float64) string {
	s := time.Since(since)
	es := time.Duration(float64(s) / percent)
	return fmt.Sprintf("%s (- %s)", asMinutes(s), asMinutes(es-s))
}
