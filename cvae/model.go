package cvae

import (
	"math/rand/v2"

	"github.com/thethongngu/deep-learning-practices/IO"
	"github.com/thethongngu/deep-learning-practices/optimizations"
	"github.com/thethongngu/deep-learning-practices/params"
	"github.com/thethongngu/deep-learning-practices/utils"
	"gonum.org/v1/gonum/mat"
)

// State is the encoder's initial (h, c), HiddenSize each, before the
// condition is concatenated.
type State struct {
	H, C *mat.Dense
}

// Model is the conditional VAE. It owns every trainable tensor; the
// embedding tables are shared by encoder and decoder.
type Model struct {
	HiddenSize, LatentSize, ConditionSize, NumCondition int
	MaxDecodeLen                                        int

	Vocab   *IO.CharTable
	CharEmb *optimizations.Param // (HiddenSize x |V|), one column per code
	CondEmb *optimizations.Param // (ConditionSize x NumCondition)
	Enc     *Encoder
	Dec     *Decoder
}

func New(cfg params.TrainingConfig, vocab *IO.CharTable, src rand.Source) *Model {
	V := vocab.Size()
	return &Model{
		HiddenSize:    cfg.HiddenSize,
		LatentSize:    cfg.LatentSize,
		ConditionSize: cfg.ConditionSize,
		NumCondition:  cfg.NumCondition,
		MaxDecodeLen:  cfg.MaxDecodeLen,
		Vocab:         vocab,
		// nn.Embedding style N(0, 1) init
		CharEmb: optimizations.NewParam("embedding", mat.NewDense(cfg.HiddenSize, V, utils.NormalArray(cfg.HiddenSize*V, src))),
		CondEmb: optimizations.NewParam("con_embedding", mat.NewDense(cfg.ConditionSize, cfg.NumCondition,
			utils.NormalArray(cfg.ConditionSize*cfg.NumCondition, src))),
		Enc: NewEncoder(cfg.HiddenSize, cfg.ConditionSize, cfg.LatentSize, src),
		Dec: NewDecoder(cfg.HiddenSize, cfg.ConditionSize, cfg.LatentSize, V, src),
	}
}

// EncoderParams is the group stepped by the encoder optimizer. The shared
// embeddings live here so they are updated once per step.
func (m *Model) EncoderParams() []*optimizations.Param {
	return append([]*optimizations.Param{m.CharEmb, m.CondEmb}, m.Enc.Params()...)
}

func (m *Model) DecoderParams() []*optimizations.Param { return m.Dec.Params() }

func (m *Model) Params() []*optimizations.Param {
	return append(m.EncoderParams(), m.DecoderParams()...)
}

func (m *Model) ZeroGrad() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

// InitState is a zero hidden state and a standard normal cell state.
func (m *Model) InitState(src rand.Source) State {
	return State{
		H: mat.NewDense(m.HiddenSize, 1, nil),
		C: utils.Vector(utils.NormalArray(m.HiddenSize, src)),
	}
}

// Result is one forward pass. Keep it to call Backward.
type Result struct {
	Word          string
	Recon, KL     float64
	TeacherForced bool

	pair IO.Pair
	enc  *encTrace
	dec  *decTrace
}

// Loss is Recon + klWeight*KL, the quantity Backward differentiates.
func (r *Result) Loss(klWeight float64) float64 { return r.Recon + klWeight*r.KL }

func (m *Model) embedChar(code int) *mat.Dense { return utils.Column(m.CharEmb.W, code) }

// Forward encodes p.Input under p.InTense and decodes p.Target under
// p.OutTense. The latent noise is drawn first from rng, then the teacher
// forcing coin (true with probability tfRatio).
func (m *Model) Forward(init State, p IO.Pair, tfRatio float64, rng *rand.Rand) *Result {
	inputs := make([]*mat.Dense, len(p.Input))
	for t, code := range p.Input {
		inputs[t] = m.embedChar(code)
	}
	inCond := utils.Column(m.CondEmb.W, int(p.InTense))
	outCond := utils.Column(m.CondEmb.W, int(p.OutTense))

	enc := m.Enc.Forward(inputs, inCond, init, rng)
	tf := rng.Float64() < tfRatio

	targets := make([]int, 0, len(p.Target)+1)
	targets = append(targets, p.Target...)
	targets = append(targets, IO.EOS)
	dec := m.Dec.Forward(enc.z, outCond, targets, m.embedChar, tf, m.MaxDecodeLen)

	return &Result{
		Word:          m.spell(dec.codes),
		Recon:         dec.loss,
		KL:            KLDivergence(enc.mean, enc.logvar),
		TeacherForced: tf,
		pair:          p,
		enc:           enc,
		dec:           dec,
	}
}

// Backward accumulates d(Recon + klWeight*KL)/dθ into every parameter's G.
func (m *Model) Backward(res *Result, klWeight float64) {
	dDecIn, dZ, dOutCond := m.Dec.Backward(res.dec)
	for t, st := range res.dec.steps {
		utils.AddToColumn(m.CharEmb.G, st.input, dDecIn[t])
	}
	utils.AddToColumn(m.CondEmb.G, int(res.pair.OutTense), dOutCond)

	dMean, dLogvar := KLGrad(res.enc.mean, res.enc.logvar, klWeight)
	dEncIn, dInCond := m.Enc.Backward(res.enc, dZ, dMean, dLogvar)
	for t, code := range res.pair.Input {
		utils.AddToColumn(m.CharEmb.G, code, dEncIn[t])
	}
	utils.AddToColumn(m.CondEmb.G, int(res.pair.InTense), dInCond)
}

// Generate decodes z under tense without a target, stopping at EOS or
// MaxDecodeLen.
func (m *Model) Generate(z *mat.Dense, tense params.Tense) string {
	cond := utils.Column(m.CondEmb.W, int(tense))
	dec := m.Dec.Forward(z, cond, nil, m.embedChar, false, m.MaxDecodeLen)
	return m.spell(dec.codes)
}

// spell maps predicted codes to letters; a predicted SOS has no letter and is dropped.
func (m *Model) spell(codes []int) string {
	letters := make([]int, 0, len(codes))
	for _, c := range codes {
		if c != IO.SOS {
			letters = append(letters, c)
		}
	}
	w, err := m.Vocab.DecodeWord(letters)
	if err != nil {
		// predictions are arg-max over the table, so every code is in range
		panic(err)
	}
	return w
}
