package cvae

import (
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// Decoder generates characters from (z, cond), starting at SOS.
type Decoder struct {
	LatentSize, ConditionSize int

	Cell *LSTM   // In: HiddenSize, state: LatentSize+ConditionSize
	Out  *Linear // state -> vocabulary logits
}

func NewDecoder(hidden, cond, latent, vocab int, src rand.Source) *Decoder {
	state := latent + cond
	return &Decoder{
		LatentSize:    latent,
		ConditionSize: cond,
		Cell:          NewLSTM("decoder.lstm", hidden, state, src),
		Out:           NewLinear("decoder.out", state, vocab, src),
	}
}

func (d *Decoder) Params() []*optimizations.Param {
	return append(d.Cell.Params(), d.Out.Params()...)
}

type decStep struct {
	input int // code fed into this step
	cell  *lstmStep
	act   *mat.Dense // relu(h)
	dLog  *mat.Dense // dLoss/dlogits, nil when there is no target
}

type decTrace struct {
	steps []decStep
	codes []int // predictions before EOS
	loss  float64
}

// Forward decodes against targets (word codes + EOS). When teacherForce is
// set the next input is always the ground truth and the full target length
// is decoded. Otherwise the arg-max prediction is fed back and an EOS
// prediction ends decoding. With targets == nil it decodes free for at most
// maxLen steps.
func (d *Decoder) Forward(z, cond *mat.Dense, targets []int, embed func(code int) *mat.Dense, teacherForce bool, maxLen int) *decTrace {
	h := utils.Concat(z, cond)
	c := mat.NewDense(d.Cell.Hidden, 1, nil)
	steps := maxLen
	if targets != nil {
		steps = len(targets)
	} else {
		teacherForce = false
	}

	tr := &decTrace{}
	input := IO.SOS
	stopped := false
	for t := 0; t < steps; t++ {
		s := d.Cell.Step(embed(input), h, c)
		h, c = s.H(), s.C()
		act := utils.Apply(utils.ReluApply, h).(*mat.Dense)
		logp := utils.ColVectorLogSoftmax(d.Out.Forward(act))
		step := decStep{input: input, cell: s, act: act}
		if targets != nil {
			loss, g := utils.NLLWithIndex(logp, targets[t])
			tr.loss += loss
			step.dLog = g
		}
		tr.steps = append(tr.steps, step)

		// the prediction leaves the graph here: only its integer code moves on
		pred := utils.ArgMax(logp)
		if teacherForce {
			if pred == IO.EOS {
				stopped = true
			}
			if !stopped {
				tr.codes = append(tr.codes, pred)
			}
			input = targets[t]
			continue
		}
		if pred == IO.EOS {
			break
		}
		tr.codes = append(tr.codes, pred)
		input = pred
	}
	return tr
}

// Backward runs BPTT from the stored per-step loss gradients. dInputs[t] is
// the gradient wrt the embedding of steps[t].input; dZ and dCond come from
// the initial hidden state.
func (d *Decoder) Backward(tr *decTrace) (dInputs []*mat.Dense, dZ, dCond *mat.Dense) {
	dh := mat.NewDense(d.Cell.Hidden, 1, nil)
	dc := mat.NewDense(d.Cell.Hidden, 1, nil)
	dInputs = make([]*mat.Dense, len(tr.steps))
	for t := len(tr.steps) - 1; t >= 0; t-- {
		st := tr.steps[t]
		if st.dLog != nil {
			dAct := d.Out.Backward(st.act, st.dLog)
			// relu'(h) = 1 where act > 0
			dh.Add(dh, utils.ReluMask(dAct, st.act))
		}
		dInputs[t], dh, dc = d.Cell.BackwardStep(st.cell, dh, dc)
	}
	parts := utils.Split(dh, d.LatentSize, d.ConditionSize)
	return dInputs, parts[0], parts[1]
}
