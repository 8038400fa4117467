package params

import "testing"

func TestTenseString(t *testing.T) {
	want := map[Tense]string{SimplePresent: "sp", ThirdPerson: "tp", PresentProgressive: "pg", Past: "p"}
	for tense, s := range want {
		if tense.String() != s {
			t.Errorf("%d.String() = %q, want %q", int(tense), tense.String(), s)
		}
	}
	if Tense(7).Valid() || Tense(7).String() != "Tense(7)" {
		t.Error("out-of-range tense should be invalid")
	}
}

func TestTestTensePairsValid(t *testing.T) {
	if len(TestTensePairs) != 10 {
		t.Fatalf("got %d test tense pairs, want 10", len(TestTensePairs))
	}
	for i, p := range TestTensePairs {
		if !p[0].Valid() || !p[1].Valid() || p[0] == p[1] {
			t.Errorf("pair %d = %v", i, p)
		}
	}
}
