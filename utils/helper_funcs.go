package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomArray returns 'size' samples from U(-1/sqrt(v), 1/sqrt(v)),
// the PyTorch default for LSTM and Linear weights of fan-in v.
func RandomArray(size int, v float64, src rand.Source) []float64 {
	bound := 1.0 / math.Sqrt(v+1e-12)
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// NormalArray returns 'size' standard normal samples.
func NormalArray(size int, src rand.Source) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func Vector(vals []float64) *mat.Dense {
	return mat.NewDense(len(vals), 1, vals)
}

// Column copies column j of m into a new (r x 1) vector.
func Column(m *mat.Dense, j int) *mat.Dense {
	r, _ := m.Dims()
	return mat.NewDense(r, 1, mat.Col(nil, j, m))
}

// AddToColumn does m[:, j] += v.
func AddToColumn(m *mat.Dense, j int, v *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		m.Set(i, j, m.At(i, j)+v.At(i, 0))
	}
}

// Concat stacks column vectors top to bottom.
func Concat(vs ...*mat.Dense) *mat.Dense {
	n := 0
	for _, v := range vs {
		r, _ := v.Dims()
		n += r
	}
	out := make([]float64, 0, n)
	for _, v := range vs {
		out = append(out, mat.Col(nil, 0, v)...)
	}
	return mat.NewDense(n, 1, out)
}

// Split cuts a column vector into consecutive pieces of the given sizes.
func Split(v *mat.Dense, sizes ...int) []*mat.Dense {
	col := mat.Col(nil, 0, v)
	out := make([]*mat.Dense, len(sizes))
	off := 0
	for i, n := range sizes {
		out[i] = mat.NewDense(n, 1, append([]float64(nil), col[off:off+n]...))
		off += n
	}
	if off != len(col) {
		panic("Split: sizes do not cover the vector")
	}
	return out
}

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the scale actually applied (<=1.0) or 1.0 if no clip.
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := mat.Norm(g, 2)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if gn <= maxNorm || gn == 0 {
		return 1.0
	}
	s := maxNorm / gn
	for _, g := range grads {
		if g != nil {
			g.Scale(s, g)
		}
	}
	return s
}
