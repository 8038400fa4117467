package cvae

import (
	"math"
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// LSTM is a single-layer cell with gates stacked i, f, g, o.
type LSTM struct {
	In, Hidden int
	Wx         *optimizations.Param // (4H x In)
	Wh         *optimizations.Param // (4H x H)
	B          *optimizations.Param // (4H x 1)
}

func NewLSTM(name string, in, hidden int, src rand.Source) *LSTM {
	h4 := 4 * hidden
	fan := float64(hidden)
	return &LSTM{
		In:     in,
		Hidden: hidden,
		Wx:     optimizations.NewParam(name+".Wx", mat.NewDense(h4, in, utils.RandomArray(h4*in, fan, src))),
		Wh:     optimizations.NewParam(name+".Wh", mat.NewDense(h4, hidden, utils.RandomArray(h4*hidden, fan, src))),
		B:      optimizations.NewParam(name+".B", mat.NewDense(h4, 1, utils.RandomArray(h4, fan, src))),
	}
}

func (l *LSTM) Params() []*optimizations.Param {
	return []*optimizations.Param{l.Wx, l.Wh, l.B}
}

// lstmStep caches one timestep for backprop.
type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tc, h        []float64
}

func (s *lstmStep) H() *mat.Dense { return utils.Vector(append([]float64(nil), s.h...)) }
func (s *lstmStep) C() *mat.Dense { return utils.Vector(append([]float64(nil), s.c...)) }

// Step runs the cell once on input x from state (h, c).
func (l *LSTM) Step(x, h, c *mat.Dense) *lstmStep {
	H := l.Hidden
	z := utils.Add(utils.Affine(l.Wx.W, x, l.B.W), utils.Dot(l.Wh.W, h))
	zc := mat.Col(nil, 0, z)

	s := &lstmStep{
		x:     mat.Col(nil, 0, x),
		hPrev: mat.Col(nil, 0, h),
		cPrev: mat.Col(nil, 0, c),
		i:     make([]float64, H),
		f:     make([]float64, H),
		g:     make([]float64, H),
		o:     make([]float64, H),
		c:     make([]float64, H),
		tc:    make([]float64, H),
		h:     make([]float64, H),
	}
	for k := 0; k < H; k++ {
		s.i[k] = utils.Sigmoid(zc[k])
		s.f[k] = utils.Sigmoid(zc[H+k])
		s.g[k] = math.Tanh(zc[2*H+k])
		s.o[k] = utils.Sigmoid(zc[3*H+k])
		s.c[k] = s.f[k]*s.cPrev[k] + s.i[k]*s.g[k]
		s.tc[k] = math.Tanh(s.c[k])
		s.h[k] = s.o[k] * s.tc[k]
	}
	return s
}

// BackwardStep takes dL/dh and dL/dc of the step output, accumulates weight
// gradients and returns the gradients wrt x, hPrev and cPrev.
func (l *LSTM) BackwardStep(s *lstmStep, dh, dc *mat.Dense) (dx, dhPrev, dcPrev *mat.Dense) {
	H := l.Hidden
	dz := make([]float64, 4*H)
	dcp := make([]float64, H)
	for k := 0; k < H; k++ {
		dhk := dh.At(k, 0)
		dct := dc.At(k, 0) + dhk*s.o[k]*(1-s.tc[k]*s.tc[k])
		do := dhk * s.tc[k]
		di := dct * s.g[k]
		dg := dct * s.i[k]
		df := dct * s.cPrev[k]
		dcp[k] = dct * s.f[k]

		dz[k] = di * s.i[k] * (1 - s.i[k])
		dz[H+k] = df * s.f[k] * (1 - s.f[k])
		dz[2*H+k] = dg * (1 - s.g[k]*s.g[k])
		dz[3*H+k] = do * s.o[k] * (1 - s.o[k])
	}
	dzv := utils.Vector(dz)
	utils.AccumOuter(l.Wx.G, dzv, utils.Vector(s.x))
	utils.AccumOuter(l.Wh.G, dzv, utils.Vector(s.hPrev))
	l.B.G.Add(l.B.G, dzv)

	dx = utils.TMulVec(l.Wx.W, dzv)
	dhPrev = utils.TMulVec(l.Wh.W, dzv)
	return dx, dhPrev, utils.Vector(dcp)
}
