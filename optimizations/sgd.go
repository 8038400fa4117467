package optimizations

// SGD is plain stochastic gradient descent: p -= lr * g.
type SGD struct {
	group
}

func NewSGD(ps []*Param, lr float64) *SGD {
	return &SGD{group{params: ps, lr: lr}}
}

func (o *SGD) Step() {
	for _, p := range o.params {
		p.W.Add(p.W, scaled(-o.lr, p))
	}
}
