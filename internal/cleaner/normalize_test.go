package cleaner

import "testing"

func TestNormalizeHostName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "camel case with conjunction", input: "JohnAndMary", want: "John & Mary"},
		{name: "camel case", input: "JohnSmith", want: "John Smith"},
		{name: "lowercase and", input: "alice and bob", want: "Alice & Bob"},
		{name: "uppercase and", input: "ALICE AND BOB", want: "Alice & Bob"},
		{name: "and inside word untouched", input: "Andrew Sandy", want: "Andrew Sandy"},
		{name: "surrounding whitespace trimmed", input: "  amy  ", want: "Amy"},
		{name: "inner whitespace preserved", input: "amy  lee", want: "Amy  Lee"},
		{name: "hyphen is not a token boundary", input: "mary-jane", want: "Mary-jane"},
		{name: "uppercase run not split", input: "ABC", want: "Abc"},
		{name: "digits untouched", input: "host42", want: "Host42"},
		{name: "leading quote skipped", input: `"amy"`, want: `"Amy"`},
		{name: "leading digits skipped", input: "42nd street", want: "42Nd Street"},
		{name: "non-ascii letters", input: "émile zola", want: "Émile Zola"},
		{name: "and after accented letter untouched", input: "Éand", want: "Éand"},
		{name: "and before accented letter untouched", input: "andé", want: "Andé"},
		{name: "ampersand already present", input: "John & Mary", want: "John & Mary"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHostName(tt.input); got != tt.want {
				t.Errorf("NormalizeHostName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeHostName_Idempotent(t *testing.T) {
	inputs := []string{"JohnAndMary", "McDonald and sons", "o'neil", "aBcDeF", "X AND y"}
	for _, in := range inputs {
		once := NormalizeHostName(in)
		if twice := NormalizeHostName(once); twice != once {
			t.Errorf("NormalizeHostName(%q) not stable: %q then %q", in, once, twice)
		}
	}
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"JohnSmith", "John Smith"},
		{"aAaA", "a Aa A"},
		{"abCDe", "ab CDe"},
		{"no change", "no change"},
	}

	for _, tt := range tests {
		if got := SplitCamelCase(tt.input); got != tt.want {
			t.Errorf("SplitCamelCase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReplaceConjunction(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"John And Mary", "John & Mary"},
		{"and", "&"},
		{"rock-and-roll", "rock-&-roll"},
		{"Candy", "Candy"},
		{"Éand", "Éand"},
		{"andé", "andé"},
		{"Zoë and Bo", "Zoë & Bo"},
		{"and_co", "and_co"},
		{"and2", "and2"},
		{"Amy AND Bo and", "Amy & Bo &"},
	}

	for _, tt := range tests {
		if got := ReplaceConjunction(tt.input); got != tt.want {
			t.Errorf("ReplaceConjunction(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
