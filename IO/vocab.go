package IO

import (
	"strings"

	"github.com/pkg/errors"
)

// Reserved control codes at the start of the table.
const (
	SOS = 0
	EOS = 1
)

// first letter code; 'a' -> 2 ... 'z' -> 27
const letterBase = 2

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrUnknownCode      = errors.New("unknown code")
)

// CharTable is the bijection between {SOS, EOS, a..z} and [0, 27].
// It has no mutable state; share one pointer between loader, model and evaluator.
type CharTable struct {
	charToID map[rune]int
	idToChar []rune
}

func NewCharTable() *CharTable {
	t := &CharTable{
		charToID: make(map[rune]int, 26),
		idToChar: make([]rune, letterBase, letterBase+26),
	}
	for c := 'a'; c <= 'z'; c++ {
		t.charToID[c] = len(t.idToChar)
		t.idToChar = append(t.idToChar, c)
	}
	return t
}

// Size is the number of codes including the two control codes.
func (t *CharTable) Size() int { return len(t.idToChar) }

func (t *CharTable) Encode(c rune) (int, error) {
	id, ok := t.charToID[c]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownCharacter, "%q", c)
	}
	return id, nil
}

func (t *CharTable) Decode(code int) (rune, error) {
	if code < letterBase || code >= len(t.idToChar) {
		return 0, errors.Wrapf(ErrUnknownCode, "%d", code)
	}
	return t.idToChar[code], nil
}

func (t *CharTable) EncodeWord(w string) ([]int, error) {
	ids := make([]int, 0, len(w))
	for _, c := range w {
		id, err := t.Encode(c)
		if err != nil {
			return nil, errors.Wrapf(err, "word %q", w)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (t *CharTable) DecodeWord(ids []int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(ids))
	for _, id := range ids {
		c, err := t.Decode(id)
		if err != nil {
			return "", err
		}
		sb.WriteRune(c)
	}
	return sb.String(), nil
}
