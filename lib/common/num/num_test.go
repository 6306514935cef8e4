package num

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDiv(t *testing.T) {
	tests := []struct {
		n1, n2 string
		want   string
	}{
		{"1", "3", "0.33333333"},
		{"7000", "1", "7000"},
		{"1", "4", "0.25"},
		{"2", "3", "0.66666666"},
	}
	for _, test := range tests {
		got := Div(decimal.RequireFromString(test.n1), decimal.RequireFromString(test.n2))
		if !got.Equal(decimal.RequireFromString(test.want)) {
			t.Errorf("Div(%s, %s): got %s, want %s", test.n1, test.n2, got, test.want)
		}
	}
}

func TestInvert(t *testing.T) {
	tests := []struct {
		n    string
		want string
	}{
		{"4", "0.25"},
		{"3", "0.33333333"},
		{"0.25", "4"},
	}
	for _, test := range tests {
		got := Invert(decimal.RequireFromString(test.n))
		if !got.Equal(decimal.RequireFromString(test.want)) {
			t.Errorf("Invert(%s): got %s, want %s", test.n, got, test.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		s       string
		want    string
		wantErr bool
	}{
		{s: "1,000.5", want: "1000.5"},
		{s: "-42", want: "-42"},
		{s: "0.00000001", want: "0.00000001"},
		{s: "abc", wantErr: true},
		{s: "", wantErr: true},
	}
	for _, test := range tests {
		got, err := Parse(test.s)
		if (err != nil) != test.wantErr {
			t.Fatalf("Parse(%q): unexpected error %v", test.s, err)
		}
		if err != nil {
			continue
		}
		if !got.Equal(decimal.RequireFromString(test.want)) {
			t.Errorf("Parse(%q): got %s, want %s", test.s, got, test.want)
		}
	}
}

func TestFixed(t *testing.T) {
	got := Fixed(decimal.RequireFromString("1.5"))
	if want := "1.50000000"; got != want {
		t.Errorf("Fixed(1.5): got %s, want %s", got, want)
	}
}
