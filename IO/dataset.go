package IO

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/thethongngu/deep-learning-practices/params"
)

var ErrMalformedLine = errors.New("malformed line")

// WordTuple holds the four forms of one verb: sp, tp, pg, p.
type WordTuple [params.NumTenses]string

// Pair is one encoded (input form -> output form) training or test example.
type Pair struct {
	Input, Target     []int
	InTense, OutTense params.Tense
}

// TestRecord is one line of test.txt with its tenses taken from params.TestTensePairs.
type TestRecord struct {
	Input, Reference  string
	InTense, OutTense params.Tense
}

func LoadTrainWords(path string) ([]WordTuple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open training file")
	}
	defer f.Close()
	words, err := ReadTrainWords(f)
	return words, errors.Wrap(err, path)
}

// ReadTrainWords parses whitespace-separated lines of exactly four words.
// Blank lines are skipped; anything else is fatal.
func ReadTrainWords(r io.Reader) ([]WordTuple, error) {
	var out []WordTuple
	err := scanFields(r, params.NumTenses, func(fields []string) {
		var w WordTuple
		copy(w[:], fields)
		out = append(out, w)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func LoadTestRecords(path string) ([]TestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open test file")
	}
	defer f.Close()
	recs, err := ReadTestRecords(f)
	return recs, errors.Wrap(err, path)
}

// ReadTestRecords parses "input reference" lines. The tense pair of the
// i-th line is params.TestTensePairs[i].
func ReadTestRecords(r io.Reader) ([]TestRecord, error) {
	var out []TestRecord
	var tooMany bool
	err := scanFields(r, 2, func(fields []string) {
		idx := len(out)
		if idx >= len(params.TestTensePairs) {
			tooMany = true
			return
		}
		tp := params.TestTensePairs[idx]
		out = append(out, TestRecord{Input: fields[0], Reference: fields[1], InTense: tp[0], OutTense: tp[1]})
	})
	if err != nil {
		return nil, err
	}
	if tooMany {
		return nil, errors.Errorf("test file has more lines than the %d known tense pairs", len(params.TestTensePairs))
	}
	return out, nil
}

func scanFields(r io.Reader, want int, fn func([]string)) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != want {
			return errors.Wrapf(ErrMalformedLine, "line %d: want %d words, got %d", line, want, len(fields))
		}
		fn(fields)
	}
	return sc.Err()
}

// GeneratePairs returns all 16 ordered (input tense, output tense) pairs of w,
// input tense major.
func GeneratePairs(vocab *CharTable, w WordTuple) ([]Pair, error) {
	var enc [params.NumTenses][]int
	for i, form := range w {
		ids, err := vocab.EncodeWord(form)
		if err != nil {
			return nil, err
		}
		enc[i] = ids
	}
	pairs := make([]Pair, 0, params.NumTenses*params.NumTenses)
	for in := 0; in < params.NumTenses; in++ {
		for out := 0; out < params.NumTenses; out++ {
			pairs = append(pairs, Pair{
				Input:    enc[in],
				Target:   enc[out],
				InTense:  params.Tense(in),
				OutTense: params.Tense(out),
			})
		}
	}
	return pairs, nil
}

// EncodeRecord turns a test record into a Pair whose Target is the reference.
func EncodeRecord(vocab *CharTable, rec TestRecord) (Pair, error) {
	in, err := vocab.EncodeWord(rec.Input)
	if err != nil {
		return Pair{}, err
	}
	ref, err := vocab.EncodeWord(rec.Reference)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Input: in, Target: ref, InTense: rec.InTense, OutTense: rec.OutTense}, nil
}
