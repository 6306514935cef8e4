package journal

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/book"
	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/common/num"
	"github.com/sboehler/coinbook/lib/price"
)

// Source is the raw shape of a journal file. The loader boundary
// guarantees syntactically valid YAML; the core validates the shapes.
type Source struct {
	Accounts     map[string]book.AccountSpec `yaml:"accounts"`
	Currencies   map[string]CurrencySpec     `yaml:"currencies"`
	Transactions []book.TransactionSpec      `yaml:"transactions"`
	Prices       []PriceSpec                 `yaml:"prices"`
}

// CurrencySpec describes one currency of the journal.
type CurrencySpec struct {
	Note        string `yaml:"note"`
	Fiat        bool   `yaml:"fiat"`
	Translation bool   `yaml:"translation"`
}

// PriceSpec is one recorded price, either as a shortcut string
// ("2018-06-17 BTC/USD 7000") or as a mapping.
type PriceSpec struct {
	Shortcut string `yaml:"shortcut"`
	UTC      string `yaml:"utc"`
	Base     string `yaml:"base"`
	Quote    string `yaml:"quote"`
	Rate     string `yaml:"rate"`
	Note     string `yaml:"note"`
}

// UnmarshalYAML accepts either a bare shortcut string or a mapping.
func (s *PriceSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		s.Shortcut = raw
		return nil
	}
	type plain PriceSpec
	return unmarshal((*plain)(s))
}

// Price materializes the spec.
func (s PriceSpec) Price() (*price.Price, error) {
	if s.Shortcut != "" {
		return price.FromShortcut(s.Shortcut)
	}
	utc, err := date.Parse(s.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	rate, err := num.Parse(s.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	p, err := price.New(utc, s.Base, s.Quote, rate)
	if err != nil {
		return nil, err
	}
	p.Note = s.Note
	return p, nil
}

// Decode reads a journal source in YAML format. Unknown fields are
// rejected.
func Decode(r io.Reader) (*Source, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	var src Source
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("decoding journal: %w", err)
	}
	return &src, nil
}

// FromPath loads and builds the journal at the given path.
func FromPath(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	j, err := Build(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return j, nil
}
