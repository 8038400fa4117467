package optimizations

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Param is one trainable tensor with its gradient accumulator.
// M and V are the Adam moments, allocated lazily by Adam.
type Param struct {
	Name string
	W, G *mat.Dense
	M, V *mat.Dense
	T    int
}

func NewParam(name string, w *mat.Dense) *Param {
	r, c := w.Dims()
	return &Param{Name: name, W: w, G: mat.NewDense(r, c, nil)}
}

func (p *Param) ZeroGrad() { p.G.Zero() }

// Optimizer updates a fixed group of parameters from their accumulated gradients.
type Optimizer interface {
	ZeroGrad()
	Step()
}

type group struct {
	params []*Param
	lr     float64
}

func (g *group) ZeroGrad() {
	for _, p := range g.params {
		p.ZeroGrad()
	}
}

// Grads lists the gradient tensors of ps, for clipping.
func Grads(ps []*Param) []*mat.Dense {
	out := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		out[i] = p.G
	}
	return out
}

// New builds the optimizer named in the config ("sgd" or "adam").
func New(name string, ps []*Param, lr, beta1, beta2, eps, weightDecay float64) (Optimizer, error) {
	switch name {
	case "", "sgd":
		return NewSGD(ps, lr), nil
	case "adam":
		return NewAdam(ps, lr, beta1, beta2, eps, weightDecay), nil
	default:
		return nil, errors.Errorf("unknown optimizer %q", name)
	}
}
