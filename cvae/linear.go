package cvae

import (
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// Linear is y = W x + b.
type Linear struct {
	W, B *optimizations.Param
}

func NewLinear(name string, in, out int, src rand.Source) *Linear {
	fan := float64(in)
	return &Linear{
		W: optimizations.NewParam(name+".W", mat.NewDense(out, in, utils.RandomArray(out*in, fan, src))),
		B: optimizations.NewParam(name+".B", mat.NewDense(out, 1, utils.RandomArray(out, fan, src))),
	}
}

func (l *Linear) Params() []*optimizations.Param { return []*optimizations.Param{l.W, l.B} }

func (l *Linear) Forward(x *mat.Dense) *mat.Dense { return utils.Affine(l.W.W, x, l.B.W) }

// Backward accumulates dW += dy x^T, dB += dy and returns W^T dy.
func (l *Linear) Backward(x, dy *mat.Dense) *mat.Dense {
	utils.AccumOuter(l.W.G, dy, x)
	l.B.G.Add(l.B.G, dy)
	return utils.TMulVec(l.W.W, dy)
}
