package params

import "fmt"

// Tense is the condition code fed to the model, in data-file column order.
type Tense int

const (
	SimplePresent Tense = iota
	ThirdPerson
	PresentProgressive
	Past
)

// NumTenses is the number of columns of a training line.
const NumTenses = 4

var tenseNames = [NumTenses]string{"sp", "tp", "pg", "p"}

func (t Tense) Valid() bool { return t >= 0 && t < NumTenses }

func (t Tense) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tense(%d)", int(t))
	}
	return tenseNames[t]
}

// TestTensePairs gives the (input, output) tense of each test.txt line by index.
// The test file itself only carries the two words.
var TestTensePairs = [][2]Tense{
	{SimplePresent, Past},
	{SimplePresent, PresentProgressive},
	{SimplePresent, ThirdPerson},
	{SimplePresent, ThirdPerson},
	{Past, ThirdPerson},
	{SimplePresent, PresentProgressive},
	{Past, SimplePresent},
	{PresentProgressive, SimplePresent},
	{PresentProgressive, Past},
	{PresentProgressive, ThirdPerson},
}
