package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is AdamW with bias correction; weight decay only touches matrices
// with more than one column (biases are columns).
type Adam struct {
	group
	beta1, beta2, eps, weightDecay float64
}

func NewAdam(ps []*Param, lr, beta1, beta2, eps, weightDecay float64) *Adam {
	return &Adam{group: group{params: ps, lr: lr}, beta1: beta1, beta2: beta2, eps: eps, weightDecay: weightDecay}
}

func (o *Adam) Step() {
	for _, p := range o.params {
		if p.M == nil {
			p.M = zerosLike(p.W)
			p.V = zerosLike(p.W)
			p.T = 0
		}
		p.T++
		wd := o.weightDecay
		if _, c := p.W.Dims(); c == 1 {
			wd = 0
		}
		AdamUpdateInPlace(p.W, p.G, p.M, p.V, p.T, o.lr, o.beta1, o.beta2, o.eps, wd)
	}
}

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	c1 := 1.0 / (1.0 - math.Pow(beta1, float64(t)))
	c2 := 1.0 / (1.0 - math.Pow(beta2, float64(t)))
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			update := (mij*c1)/(math.Sqrt(vij*c2)+eps) + weightDecay*p.At(i, j)
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*update)
		}
	}
}

func zerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

func scaled(s float64, p *Param) *mat.Dense {
	out := zerosLike(p.G)
	out.Scale(s, p.G)
	return out
}
