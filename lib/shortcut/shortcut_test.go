package shortcut

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		raw     string
		tokens  []string
		comment string
		err     error
	}{
		{
			raw:    "10 BTC",
			tokens: []string{"10", "BTC"},
		},
		{
			raw:    "10   BTC \t bank",
			tokens: []string{"10", "BTC", "bank"},
		},
		{
			raw:    "1 ETH @ $100",
			tokens: []string{"1", "ETH", "@", "100", "USD"},
		},
		{
			raw:    "-$100",
			tokens: []string{"-100", "USD"},
		},
		{
			raw:    "1 BTC = €9000",
			tokens: []string{"1", "BTC", "=", "9000", "EUR"},
		},
		{
			raw:     "-1 ETH @ $100 bank ;foo",
			tokens:  []string{"-1", "ETH", "@", "100", "USD", "bank"},
			comment: "foo",
		},
		{
			raw:     "10 BTC ;  padded comment ",
			tokens:  []string{"10", "BTC"},
			comment: "padded comment",
		},
		{
			raw:    `10 BTC a\;b`,
			tokens: []string{"10", "BTC", "a;b"},
		},
		{
			raw:    "$btc 10",
			tokens: []string{"$btc", "10"},
		},
		{
			raw: "10",
			err: ErrInvalidShortcut,
		},
		{
			raw: "   ",
			err: ErrInvalidShortcut,
		},
		{
			raw:     "10 BTC ;only two tokens matter",
			tokens:  []string{"10", "BTC"},
			comment: "only two tokens matter",
		},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			tokens, comment, err := Tokenize(test.raw)
			if !errors.Is(err, test.err) {
				t.Fatalf("Tokenize(%q): got error %v, want %v", test.raw, err, test.err)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(test.tokens, tokens); diff != "" {
				t.Errorf("Tokenize(%q): unexpected tokens (-want +got):\n%s", test.raw, diff)
			}
			if comment != test.comment {
				t.Errorf("Tokenize(%q): got comment %q, want %q", test.raw, comment, test.comment)
			}
		})
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		raw     string
		tokens  []string
		comment string
		err     error
	}{
		{
			raw:    "10 BTC",
			tokens: []string{"10", "BTC"},
		},
		{
			raw:    "BTC 10",
			tokens: []string{"BTC", "10"},
		},
		{
			raw:     "10 BTC bank ;deposit",
			tokens:  []string{"10", "BTC", "bank"},
			comment: "deposit",
		},
		{
			raw: "1 ETH @ $100",
			err: ErrInvalidShortcut,
		},
		{
			raw: "10 20",
			err: ErrInvalidShortcut,
		},
		{
			raw: "BTC bank",
			err: ErrInvalidShortcut,
		},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			e, err := ParseEntry(test.raw)
			if !errors.Is(err, test.err) {
				t.Fatalf("ParseEntry(%q): got error %v, want %v", test.raw, err, test.err)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(test.tokens, e.Tokens); diff != "" {
				t.Errorf("ParseEntry(%q): unexpected tokens (-want +got):\n%s", test.raw, diff)
			}
			if e.Comment != test.comment {
				t.Errorf("ParseEntry(%q): got comment %q, want %q", test.raw, e.Comment, test.comment)
			}
		})
	}
}

func TestParseTrade(t *testing.T) {
	tests := []struct {
		raw  string
		want *Trade
		err  error
	}{
		{
			raw: "1 ETH @ $100",
			want: &Trade{
				Debit:     []string{"1", "ETH"},
				Credit:    []string{"100", "USD"},
				Connector: PerUnit,
				Shortcut:  "1 ETH @ $100",
			},
		},
		{
			raw: "-1 ETH @ $100 bank ;foo",
			want: &Trade{
				Debit:     []string{"100", "USD", "bank"},
				Credit:    []string{"1", "ETH"},
				Connector: PerUnit,
				Reversed:  true,
				Comment:   "foo",
				Shortcut:  "-1 ETH @ $100 bank ;foo",
			},
		},
		{
			raw: "2 BTC = 9000 EUR",
			want: &Trade{
				Debit:     []string{"2", "BTC"},
				Credit:    []string{"9000", "EUR"},
				Connector: Total,
				Shortcut:  "2 BTC = 9000 EUR",
			},
		},
		{
			raw: "10 BTC",
			err: ErrInvalidTrade,
		},
		{
			raw: "1 BTC @ 2 ETH @ 3 USD",
			err: ErrInvalidTrade,
		},
		{
			raw: "1 2 @ 3 USD",
			err: ErrInvalidTrade,
		},
		{
			raw: "1 ETH @ USD bank",
			err: ErrInvalidTrade,
		},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			got, err := ParseTrade(test.raw)
			if !errors.Is(err, test.err) {
				t.Fatalf("ParseTrade(%q): got error %v, want %v", test.raw, err, test.err)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("ParseTrade(%q): unexpected trade (-want +got):\n%s", test.raw, diff)
			}
		})
	}
}
