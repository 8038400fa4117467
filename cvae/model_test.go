package cvae

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func tinyConfig() params.TrainingConfig {
	cfg := params.Config
	cfg.HiddenSize = 5
	cfg.LatentSize = 3
	cfg.ConditionSize = 2
	cfg.MaxDecodeLen = 8
	return cfg
}

func tinyModel(seed uint64) *Model {
	return New(tinyConfig(), IO.NewCharTable(), rand.NewPCG(seed, seed+1))
}

func testPair(t *testing.T, vocab *IO.CharTable, in, out params.Tense) IO.Pair {
	t.Helper()
	pairs, err := IO.GeneratePairs(vocab, IO.WordTuple{"bake", "bakes", "baking", "baked"})
	if err != nil {
		t.Fatal(err)
	}
	return pairs[int(in)*params.NumTenses+int(out)]
}

func TestModelGradCheck(t *testing.T) {
	m := tinyModel(3)
	p := testPair(t, m.Vocab, params.PresentProgressive, params.Past)
	init := m.InitState(rand.NewPCG(5, 5))
	const klWeight = 1.0

	forward := func() float64 {
		res := m.Forward(init, p, 1.0, rand.New(rand.NewPCG(42, 43)))
		return res.Loss(klWeight)
	}

	m.ZeroGrad()
	res := m.Forward(init, p, 1.0, rand.New(rand.NewPCG(42, 43)))
	if !res.TeacherForced {
		t.Fatal("ratio 1.0 must always teacher force")
	}
	m.Backward(res, klWeight)

	firstIn, firstOut := p.Input[0], p.Target[0]
	finiteDiffCheck(t, "embedding(enc input)", m.CharEmb.W, m.CharEmb.G, forward, 1, firstIn)
	finiteDiffCheck(t, "embedding(dec input)", m.CharEmb.W, m.CharEmb.G, forward, 3, firstOut)
	finiteDiffCheck(t, "embedding(SOS)", m.CharEmb.W, m.CharEmb.G, forward, 0, IO.SOS)
	finiteDiffCheck(t, "con_embedding(in)", m.CondEmb.W, m.CondEmb.G, forward, 0, int(p.InTense))
	finiteDiffCheck(t, "con_embedding(out)", m.CondEmb.W, m.CondEmb.G, forward, 1, int(p.OutTense))
	finiteDiffCheck(t, "encoder.lstm.Wx", m.Enc.Cell.Wx.W, m.Enc.Cell.Wx.G, forward, 4, 2)
	finiteDiffCheck(t, "encoder.lstm.Wh", m.Enc.Cell.Wh.W, m.Enc.Cell.Wh.G, forward, 17, 6)
	finiteDiffCheck(t, "encoder.mean.W", m.Enc.Mean.W.W, m.Enc.Mean.W.G, forward, 1, 3)
	finiteDiffCheck(t, "encoder.logvar.W", m.Enc.Logvar.W.W, m.Enc.Logvar.W.G, forward, 2, 0)
	finiteDiffCheck(t, "encoder.logvar.B", m.Enc.Logvar.B.W, m.Enc.Logvar.B.G, forward, 0, 0)
	finiteDiffCheck(t, "decoder.lstm.Wx", m.Dec.Cell.Wx.W, m.Dec.Cell.Wx.G, forward, 7, 4)
	finiteDiffCheck(t, "decoder.lstm.Wh", m.Dec.Cell.Wh.W, m.Dec.Cell.Wh.G, forward, 12, 1)
	finiteDiffCheck(t, "decoder.out.W", m.Dec.Out.W.W, m.Dec.Out.W.G, forward, firstOut, 2)
	finiteDiffCheck(t, "decoder.out.B", m.Dec.Out.B.W, m.Dec.Out.B.G, forward, IO.EOS, 0)
}

func TestForwardDeterministicWithSeed(t *testing.T) {
	m := tinyModel(9)
	p := testPair(t, m.Vocab, params.SimplePresent, params.ThirdPerson)
	init := m.InitState(rand.NewPCG(1, 2))

	a := m.Forward(init, p, 1.0, rand.New(rand.NewPCG(77, 78)))
	b := m.Forward(init, p, 1.0, rand.New(rand.NewPCG(77, 78)))
	if a.Recon != b.Recon || a.KL != b.KL || a.Word != b.Word {
		t.Fatalf("same seed gave different results: %+v vs %+v", a, b)
	}
	c := m.Forward(init, p, 1.0, rand.New(rand.NewPCG(1000, 1001)))
	if c.Recon == a.Recon {
		t.Fatal("different latent noise should change the reconstruction loss")
	}
}

func TestKLDivergenceNonNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.IntN(16)
		mean := mat.NewDense(n, 1, nil)
		logvar := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			mean.Set(i, 0, rng.NormFloat64()*3)
			logvar.Set(i, 0, rng.NormFloat64()*3)
		}
		if kl := KLDivergence(mean, logvar); kl < -1e-12 {
			t.Fatalf("KL = %g < 0 for mean=%v logvar=%v", kl, mat.Col(nil, 0, mean), mat.Col(nil, 0, logvar))
		}
	}
	if kl := KLDivergence(mat.NewDense(4, 1, nil), mat.NewDense(4, 1, nil)); kl != 0 {
		t.Fatalf("KL(N(0,I)||N(0,I)) = %g, want 0", kl)
	}
}

func TestReparameterizeMeanConverges(t *testing.T) {
	mean := utils.Vector([]float64{0.5, -1.0})
	logvar := utils.Vector([]float64{0.2, -0.3})
	src := rand.NewPCG(2024, 7)

	const n = 200000
	draws := [2][]float64{make([]float64, n), make([]float64, n)}
	for k := 0; k < n; k++ {
		z := Reparameterize(mean, logvar, utils.NormalArray(2, src))
		draws[0][k] = z.At(0, 0)
		draws[1][k] = z.At(1, 0)
	}
	for i := 0; i < 2; i++ {
		mu, variance := stat.MeanVariance(draws[i], nil)
		if math.Abs(mu-mean.At(i, 0)) > 0.01 {
			t.Errorf("dim %d: sample mean %.4f, want %.4f", i, mu, mean.At(i, 0))
		}
		if want := math.Exp(logvar.At(i, 0)); math.Abs(variance-want) > 0.03 {
			t.Errorf("dim %d: sample variance %.4f, want %.4f", i, variance, want)
		}
	}
}

func TestDecoderStopsOnEOSOnlyWhenFreeRunning(t *testing.T) {
	m := tinyModel(11)
	// make EOS the arg-max at every step
	m.Dec.Out.B.W.Set(IO.EOS, 0, 100)
	p := testPair(t, m.Vocab, params.SimplePresent, params.Past)
	init := m.InitState(rand.NewPCG(1, 1))

	free := m.Forward(init, p, 0, rand.New(rand.NewPCG(3, 3)))
	if free.TeacherForced {
		t.Fatal("ratio 0 must never teacher force")
	}
	if len(free.dec.steps) != 1 || free.Word != "" {
		t.Fatalf("free running: %d steps, word %q; want 1 step, empty word", len(free.dec.steps), free.Word)
	}

	forced := m.Forward(init, p, 1, rand.New(rand.NewPCG(3, 3)))
	if want := len(p.Target) + 1; len(forced.dec.steps) != want {
		t.Fatalf("teacher forced: %d steps, want %d (target + EOS)", len(forced.dec.steps), want)
	}
	if forced.Recon <= free.Recon {
		t.Fatalf("full-length loss %.4f should exceed single-step loss %.4f", forced.Recon, free.Recon)
	}
}

func TestGenerateRespectsMaxLen(t *testing.T) {
	m := tinyModel(12)
	// never predict EOS
	m.Dec.Out.B.W.Set(IO.EOS, 0, -100)
	m.Dec.Out.B.W.Set(IO.SOS, 0, -100)
	z := utils.Vector(utils.NormalArray(m.LatentSize, rand.NewPCG(8, 8)))
	for tense := params.Tense(0); tense < params.NumTenses; tense++ {
		if w := m.Generate(z, tense); len(w) != m.MaxDecodeLen {
			t.Fatalf("tense %s: generated %q, want %d letters", tense, w, m.MaxDecodeLen)
		}
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "best.gob")
	a := tinyModel(21)
	if err := SaveModel(a, path, CheckpointMeta{Epoch: 7, BLEU: 0.42}); err != nil {
		t.Fatal(err)
	}

	b := tinyModel(22)
	meta, err := LoadModel(b, path)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Epoch != 7 || meta.BLEU != 0.42 {
		t.Fatalf("meta = %+v", meta)
	}
	for i, p := range a.Params() {
		if !mat.Equal(p.W, b.Params()[i].W) {
			t.Fatalf("%s differs after load", p.Name)
		}
	}

	p := testPair(t, a.Vocab, params.Past, params.SimplePresent)
	init := a.InitState(rand.NewPCG(1, 1))
	ra := a.Forward(init, p, 0, rand.New(rand.NewPCG(5, 6)))
	rb := b.Forward(init, p, 0, rand.New(rand.NewPCG(5, 6)))
	if ra.Word != rb.Word || ra.Recon != rb.Recon {
		t.Fatalf("loaded model disagrees: %q/%g vs %q/%g", ra.Word, ra.Recon, rb.Word, rb.Recon)
	}
}

func TestCheckpointShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.gob")
	if err := SaveModel(tinyModel(1), path, CheckpointMeta{}); err != nil {
		t.Fatal(err)
	}
	cfg := tinyConfig()
	cfg.HiddenSize = 6
	other := New(cfg, IO.NewCharTable(), rand.NewPCG(1, 1))
	if _, err := LoadModel(other, path); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

// eosGaps runs p free with EOS suppressed and returns, per step, how far the
// EOS logit sits below the best other logit.
func eosGaps(m *Model, init State, p IO.Pair, seed uint64) []float64 {
	m.Dec.Out.B.W.Set(IO.EOS, 0, -100)
	res := m.Forward(init, p, 0, rand.New(rand.NewPCG(seed, seed)))
	gaps := make([]float64, len(res.dec.steps))
	for t, st := range res.dec.steps {
		logits := m.Dec.Out.Forward(st.act)
		best := math.Inf(-1)
		for j := 0; j < m.Vocab.Size(); j++ {
			if j != IO.EOS {
				best = math.Max(best, logits.At(j, 0))
			}
		}
		gaps[t] = best - logits.At(IO.EOS, 0)
	}
	return gaps
}

func TestModelGradCheckFreeRunning(t *testing.T) {
	const seed = 42
	for _, tc := range []struct {
		name    string
		stopMid bool
	}{
		{"full length", false},
		{"stops at EOS", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				m     *Model
				p     IO.Pair
				init  State
				steps int
			)
			for ms := uint64(1); ms <= 40 && m == nil; ms++ {
				cand := tinyModel(ms)
				cp := testPair(t, cand.Vocab, params.SimplePresent, params.Past)
				ci := cand.InitState(rand.NewPCG(ms, 7))
				gaps := eosGaps(cand, ci, cp, seed)
				if !tc.stopMid {
					m, p, init, steps = cand, cp, ci, len(gaps)
					break
				}
				// the path before EOS wins does not depend on the EOS bias, so a
				// bias between gaps[k] and every earlier gap stops after step k
				lowest := gaps[0]
				for k := 1; k < len(gaps)-1; k++ {
					if gaps[k] < lowest-0.2 {
						cand.Dec.Out.B.W.Set(IO.EOS, 0, -100+(gaps[k]+lowest)/2)
						m, p, init, steps = cand, cp, ci, k+1
						break
					}
					lowest = math.Min(lowest, gaps[k])
				}
			}
			if m == nil {
				t.Fatal("no model stops decoding mid-word")
			}

			const klWeight = 0.5
			forward := func() float64 {
				return m.Forward(init, p, 0, rand.New(rand.NewPCG(seed, seed))).Loss(klWeight)
			}
			m.ZeroGrad()
			res := m.Forward(init, p, 0, rand.New(rand.NewPCG(seed, seed)))
			if res.TeacherForced {
				t.Fatal("ratio 0 must never teacher force")
			}
			if len(res.dec.steps) != steps {
				t.Fatalf("decoded %d steps, want %d", len(res.dec.steps), steps)
			}
			if steps < 2 {
				t.Fatalf("need a fed-back prediction, got %d steps", steps)
			}
			m.Backward(res, klWeight)

			// step 1 consumes the arg-max of step 0; only its embedding column
			// carries gradient back
			fed := res.dec.steps[1].input
			for r := 0; r < m.HiddenSize; r++ {
				finiteDiffCheck(t, "embedding(fed back)", m.CharEmb.W, m.CharEmb.G, forward, r, fed)
			}
			finiteDiffCheck(t, "embedding(SOS)", m.CharEmb.W, m.CharEmb.G, forward, 2, IO.SOS)
			finiteDiffCheck(t, "embedding(enc input)", m.CharEmb.W, m.CharEmb.G, forward, 0, p.Input[0])
			finiteDiffCheck(t, "con_embedding(in)", m.CondEmb.W, m.CondEmb.G, forward, 1, int(p.InTense))
			finiteDiffCheck(t, "con_embedding(out)", m.CondEmb.W, m.CondEmb.G, forward, 0, int(p.OutTense))
			finiteDiffCheck(t, "encoder.lstm.Wx", m.Enc.Cell.Wx.W, m.Enc.Cell.Wx.G, forward, 9, 1)
			finiteDiffCheck(t, "encoder.mean.W", m.Enc.Mean.W.W, m.Enc.Mean.W.G, forward, 0, 2)
			finiteDiffCheck(t, "decoder.lstm.Wx", m.Dec.Cell.Wx.W, m.Dec.Cell.Wx.G, forward, 3, 0)
			finiteDiffCheck(t, "decoder.lstm.Wh", m.Dec.Cell.Wh.W, m.Dec.Cell.Wh.G, forward, 14, 3)
			finiteDiffCheck(t, "decoder.out.W", m.Dec.Out.W.W, m.Dec.Out.W.G, forward, IO.EOS, 1)
			finiteDiffCheck(t, "decoder.out.B", m.Dec.Out.B.W, m.Dec.Out.B.G, forward, IO.EOS, 0)
		})
	}
}
