package cvae

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CheckpointMeta is stored next to the weights.
type CheckpointMeta struct {
	Epoch int
	BLEU  float64
}

type tensorData struct {
	Name string
	R, C int
	Data []float64
}

type modelData struct {
	HiddenSize, LatentSize, ConditionSize, NumCondition int
	VocabSize                                           int

	Tensors []tensorData
	Meta    CheckpointMeta
}

// SaveModel writes all weights (no gradients, no optimizer state) with gob.
func SaveModel(m *Model, path string, meta CheckpointMeta) error {
	data := modelData{
		HiddenSize:    m.HiddenSize,
		LatentSize:    m.LatentSize,
		ConditionSize: m.ConditionSize,
		NumCondition:  m.NumCondition,
		VocabSize:     m.Vocab.Size(),
		Meta:          meta,
	}
	for _, p := range m.Params() {
		r, c := p.W.Dims()
		raw := mat.DenseCopyOf(p.W).RawMatrix()
		data.Tensors = append(data.Tensors, tensorData{
			Name: p.Name, R: r, C: c,
			Data: append([]float64(nil), raw.Data...),
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create checkpoint dir")
		}
	}
	// write then rename so a crash never leaves a half-written best model
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write checkpoint")
	}
	return errors.Wrap(os.Rename(tmp, path), "rename checkpoint")
}

// LoadModel restores weights saved by SaveModel into m. Every tensor must
// match by name and shape.
func LoadModel(m *Model, path string) (CheckpointMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CheckpointMeta{}, errors.Wrap(err, "read checkpoint")
	}
	var data modelData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return CheckpointMeta{}, errors.Wrap(err, "decode checkpoint")
	}
	if data.HiddenSize != m.HiddenSize || data.LatentSize != m.LatentSize ||
		data.ConditionSize != m.ConditionSize || data.NumCondition != m.NumCondition ||
		data.VocabSize != m.Vocab.Size() {
		return CheckpointMeta{}, errors.Errorf("LoadModel: size mismatch (file hidden=%d latent=%d cond=%d/%d vocab=%d)",
			data.HiddenSize, data.LatentSize, data.ConditionSize, data.NumCondition, data.VocabSize)
	}

	byName := make(map[string]tensorData, len(data.Tensors))
	for _, t := range data.Tensors {
		byName[t.Name] = t
	}
	ps := m.Params()
	for _, p := range ps {
		t, ok := byName[p.Name]
		if !ok {
			return CheckpointMeta{}, errors.Errorf("LoadModel: tensor %s missing", p.Name)
		}
		r, c := p.W.Dims()
		if t.R != r || t.C != c || len(t.Data) != r*c {
			return CheckpointMeta{}, errors.Errorf("LoadModel: %s shape mismatch (have %dx%d, file %dx%d)", p.Name, r, c, t.R, t.C)
		}
	}
	for _, p := range ps {
		t := byName[p.Name]
		p.W.Copy(mat.NewDense(t.R, t.C, t.Data))
	}
	return data.Meta, nil
}
