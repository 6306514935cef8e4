// Copyright 2021 Silvio Böhler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package price maintains historical exchange rates for currency pairs
// and resolves a rate for an arbitrary pair at an arbitrary instant,
// inverting or translating through intermediate currencies as needed.
package price

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/common/num"
)

var (
	// ErrInvalidTerm marks a structurally invalid price or search term.
	ErrInvalidTerm = errors.New("invalid term")
	// ErrNotFound is returned when no data exists for a pair, even via
	// inversion or translation.
	ErrNotFound = errors.New("pair not found")
	// ErrEmpty is returned when a nearest-price search runs on an empty
	// series.
	ErrEmpty = errors.New("empty price series")
	// ErrOutOfRange is returned when the nearest price lies outside the
	// caller's tolerance window.
	ErrOutOfRange = errors.New("price out of range")
)

// Price is the rate of one currency pair at one instant, expressed as
// quote units per base unit.
type Price struct {
	UTC   time.Time
	Base  string
	Quote string
	Rate  decimal.Decimal
	Note  string

	// TranslationChain lists the pairs a derived price was multiplied
	// through, empty for directly recorded prices.
	TranslationChain []string
}

// New creates a price. The rate must be positive.
func New(utc time.Time, base, quote string, rate decimal.Decimal) (*Price, error) {
	if utc.IsZero() {
		return nil, fmt.Errorf("%w: price %s/%s has no date", ErrInvalidTerm, base, quote)
	}
	if base == "" || quote == "" {
		return nil, fmt.Errorf("%w: price needs both base and quote", ErrInvalidTerm)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: rate %s for %s/%s must be positive", ErrInvalidTerm, rate, base, quote)
	}
	return &Price{UTC: utc, Base: base, Quote: quote, Rate: rate}, nil
}

// FromShortcut parses a price shortcut of the form
// "2018-06-17 BTC/USD 7000.0 optional note".
func FromShortcut(raw string) (*Price, error) {
	fields := strings.Fields(raw)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: price shortcut %q needs date, pair and rate", ErrInvalidTerm, raw)
	}
	utc, err := date.Parse(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerm, err)
	}
	base, quote, ok := strings.Cut(fields[1], "/")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a pair", ErrInvalidTerm, fields[1])
	}
	rate, err := num.Parse(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerm, err)
	}
	p, err := New(utc, base, quote, rate)
	if err != nil {
		return nil, err
	}
	p.Note = strings.Join(fields[3:], " ")
	return p, nil
}

// Pair returns the pair symbol, e.g. "BTC/USD".
func (p *Price) Pair() string {
	return p.Base + "/" + p.Quote
}

// ID derives a stable identifier from pair and timestamp.
func (p *Price) ID() string {
	return fmt.Sprintf("%s-%s", p.Pair(), p.UTC.Format(time.RFC3339))
}

// Invert returns the reciprocal pair with rate 1/rate.
func (p *Price) Invert() *Price {
	return &Price{
		UTC:              p.UTC,
		Base:             p.Quote,
		Quote:            p.Base,
		Rate:             num.Invert(p.Rate),
		Note:             p.Note,
		TranslationChain: p.TranslationChain,
	}
}

// Compare orders prices by date, ties broken by (quote, base).
func Compare(p1, p2 *Price) compare.Order {
	if o := compare.Time(p1.UTC, p2.UTC); o != compare.Equal {
		return o
	}
	if o := compare.Ordered(p1.Quote, p2.Quote); o != compare.Equal {
		return o
	}
	return compare.Ordered(p1.Base, p2.Base)
}

// ToObject returns the serializable projection of the price.
func (p *Price) ToObject() yaml.MapSlice {
	res := yaml.MapSlice{
		{Key: "id", Value: p.ID()},
		{Key: "utc", Value: p.UTC.Format(time.RFC3339)},
		{Key: "pair", Value: p.Pair()},
		{Key: "base", Value: p.Base},
		{Key: "quote", Value: p.Quote},
		{Key: "rate", Value: num.Fixed(p.Rate)},
	}
	if p.Note != "" {
		res = append(res, yaml.MapItem{Key: "note", Value: p.Note})
	}
	if len(p.TranslationChain) > 0 {
		res = append(res, yaml.MapItem{Key: "translationChain", Value: p.TranslationChain})
	}
	return res
}
