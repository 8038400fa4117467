package cvae

import (
	"math"
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// Encoder reads an embedded word under a tense condition and emits the
// posterior (mean, logvar) and a reparameterized latent sample.
type Encoder struct {
	HiddenSize, ConditionSize, LatentSize int

	Cell   *LSTM // In: HiddenSize, state: HiddenSize+ConditionSize
	Mean   *Linear
	Logvar *Linear
}

func NewEncoder(hidden, cond, latent int, src rand.Source) *Encoder {
	state := hidden + cond
	return &Encoder{
		HiddenSize:    hidden,
		ConditionSize: cond,
		LatentSize:    latent,
		Cell:          NewLSTM("encoder.lstm", hidden, state, src),
		Mean:          NewLinear("encoder.mean", state, latent, src),
		Logvar:        NewLinear("encoder.logvar", state, latent, src),
	}
}

func (e *Encoder) Params() []*optimizations.Param {
	ps := e.Cell.Params()
	ps = append(ps, e.Mean.Params()...)
	return append(ps, e.Logvar.Params()...)
}

type encTrace struct {
	steps        []*lstmStep
	hT           *mat.Dense
	mean, logvar *mat.Dense
	noise        []float64
	z            *mat.Dense
}

// Forward conditions the initial state by concatenating cond onto both
// h and c, then runs the cell once per input column.
func (e *Encoder) Forward(inputs []*mat.Dense, cond *mat.Dense, init State, src rand.Source) *encTrace {
	h := utils.Concat(init.H, cond)
	c := utils.Concat(init.C, cond)
	tr := &encTrace{steps: make([]*lstmStep, 0, len(inputs))}
	for _, x := range inputs {
		s := e.Cell.Step(x, h, c)
		tr.steps = append(tr.steps, s)
		h, c = s.H(), s.C()
	}
	tr.hT = h
	tr.mean = e.Mean.Forward(h)
	tr.logvar = e.Logvar.Forward(h)
	tr.noise = utils.NormalArray(e.LatentSize, src)
	tr.z = Reparameterize(tr.mean, tr.logvar, tr.noise)
	return tr
}

// Reparameterize returns mean + exp(0.5*logvar) * noise.
func Reparameterize(mean, logvar *mat.Dense, noise []float64) *mat.Dense {
	std := utils.Apply(func(_, _ int, v float64) float64 { return math.Exp(0.5 * v) }, logvar)
	return utils.Add(mean, utils.Multiply(std, utils.Vector(noise)))
}

// Backward takes dL/dz plus any direct gradients on mean and logvar (the KL
// term) and returns gradients wrt each embedded input and the condition.
func (e *Encoder) Backward(tr *encTrace, dz, dMean, dLogvar *mat.Dense) (dInputs []*mat.Dense, dCond *mat.Dense) {
	dm := mat.NewDense(e.LatentSize, 1, nil)
	dlv := mat.NewDense(e.LatentSize, 1, nil)
	for i := 0; i < e.LatentSize; i++ {
		dm.Set(i, 0, dz.At(i, 0)+dMean.At(i, 0))
		std := math.Exp(0.5 * tr.logvar.At(i, 0))
		dlv.Set(i, 0, dz.At(i, 0)*0.5*std*tr.noise[i]+dLogvar.At(i, 0))
	}
	dh := e.Mean.Backward(tr.hT, dm)
	dh.Add(dh, e.Logvar.Backward(tr.hT, dlv))
	dc := mat.NewDense(e.Cell.Hidden, 1, nil)

	dInputs = make([]*mat.Dense, len(tr.steps))
	for t := len(tr.steps) - 1; t >= 0; t-- {
		dInputs[t], dh, dc = e.Cell.BackwardStep(tr.steps[t], dh, dc)
	}
	// cond was concatenated onto both h0 and c0
	hParts := utils.Split(dh, e.HiddenSize, e.ConditionSize)
	cParts := utils.Split(dc, e.HiddenSize, e.ConditionSize)
	dCond = hParts[1]
	dCond.Add(dCond, cParts[1])
	return dInputs, dCond
}
