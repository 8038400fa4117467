package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix functions used by the recurrent cells and the loss.
// Vectors are (n x 1) *mat.Dense columns throughout.

// Dot returns the matrix product m*n.
func Dot(m, n mat.Matrix) *mat.Dense {
	var o mat.Dense
	o.Mul(m, n)
	return &o
}

func Apply(fn func(i, j int, v float64) float64, m mat.Matrix) mat.Matrix {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

// Scale returns s*m without touching m.
func Scale(s float64, m mat.Matrix) *mat.Dense {
	var o mat.Dense
	o.Scale(s, m)
	return &o
}

// Multiply is the element-wise (Hadamard) product.
func Multiply(m, n mat.Matrix) *mat.Dense {
	var o mat.Dense
	o.MulElem(m, n)
	return &o
}

// Add returns m+n as a new matrix.
func Add(m, n mat.Matrix) *mat.Dense {
	var o mat.Dense
	o.Add(m, n)
	return &o
}

// Affine returns W*x + b for a column x.
func Affine(W, x, b *mat.Dense) *mat.Dense {
	return Add(Dot(W, x), b)
}

// AccumOuter does dst += a * b^T.
func AccumOuter(dst, a, b *mat.Dense) {
	var o mat.Dense
	o.Mul(a, b.T())
	dst.Add(dst, &o)
}

// TMulVec returns W^T * v.
func TMulVec(W, v *mat.Dense) *mat.Dense {
	_, c := W.Dims()
	o := mat.NewDense(c, 1, nil)
	o.Mul(W.T(), v)
	return o
}

// ---------- Activations ----------

func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func ReluApply(_, _ int, v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// ReluMask zeroes grad wherever pre <= 0.
func ReluMask(grad, pre *mat.Dense) *mat.Dense {
	return Apply(func(i, j int, v float64) float64 {
		if pre.At(i, j) > 0 {
			return v
		}
		return 0
	}, grad).(*mat.Dense)
}

// ---------- Softmax ----------

// ColVectorSoftmax applies softmax across the single column of a (r x 1) vector.
func ColVectorSoftmax(v *mat.Dense) *mat.Dense {
	ls := ColVectorLogSoftmax(v)
	return Apply(func(_, _ int, x float64) float64 { return math.Exp(x) }, ls).(*mat.Dense)
}

// ColVectorLogSoftmax returns log(softmax(v)) computed through log-sum-exp.
func ColVectorLogSoftmax(v *mat.Dense) *mat.Dense {
	r, c := v.Dims()
	if c != 1 {
		panic("ColVectorLogSoftmax expects a (r x 1) column vector")
	}
	col := mat.Col(nil, 0, v)
	lse := floats.LogSumExp(col)
	floats.AddConst(-lse, col)
	return mat.NewDense(r, 1, col)
}

// ArgMax returns the row index of the largest entry of a column.
func ArgMax(v *mat.Dense) int {
	return floats.MaxIdx(mat.Col(nil, 0, v))
}

// ---------- Loss ----------

// NLLWithIndex takes log-probabilities and the gold index and returns
// -logp[gold] with the gradient wrt the logits that produced logp
// (softmax - onehot).
func NLLWithIndex(logp *mat.Dense, gold int) (float64, *mat.Dense) {
	r, c := logp.Dims()
	if c != 1 {
		panic("NLLWithIndex expects (r x 1) log-probabilities")
	}
	if gold < 0 || gold >= r {
		panic("NLLWithIndex: gold index out of range")
	}
	loss := -logp.At(gold, 0)
	grad := Apply(func(_, _ int, x float64) float64 { return math.Exp(x) }, logp).(*mat.Dense)
	grad.Set(gold, 0, grad.At(gold, 0)-1.0)
	return loss, grad
}

// CrossEntropyWithIndex is NLLWithIndex applied to raw logits.
func CrossEntropyWithIndex(logits *mat.Dense, gold int) (float64, *mat.Dense) {
	return NLLWithIndex(ColVectorLogSoftmax(logits), gold)
}
