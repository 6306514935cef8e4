// Package book implements the double-entry core of the ledger: postings
// (entries), transactions, the hierarchical chart of accounts, and
// cost-basis lots with realized and unrealized capital gains.
//
// The package operates on a fully loaded in-memory graph. It performs
// no I/O; non-fatal conditions surface as returned warnings, fatal ones
// as errors.
package book

import (
	"errors"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/dict"
)

var (
	// ErrInvalidTerm marks a structurally invalid construction or
	// search argument.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrNotFound is returned when an account path or alias does not
	// resolve.
	ErrNotFound = errors.New("not found")

	// ErrExhausted is returned when lot matching runs out of open lots
	// for a currency while unmatched credit quantity remains. The
	// ledger is inconsistent: it sells currency it never acquired.
	ErrExhausted = errors.New("lots exhausted")
)

// Currency describes one currency of the ledger.
type Currency struct {
	Symbol string
	Note   string

	// Fiat currencies never open cost-basis lots.
	Fiat bool

	// Translation marks the currency as an intermediate hop for price
	// lookups without a direct pair.
	Translation bool
}

// Currencies indexes the ledger's currencies by symbol.
type Currencies map[string]*Currency

// IsFiat reports whether the symbol names a known fiat currency.
func (cs Currencies) IsFiat(symbol string) bool {
	c, ok := cs[symbol]
	return ok && c.Fiat
}

// Translations returns the configured translation currencies in
// lexicographic order.
func (cs Currencies) Translations() []string {
	var res []string
	for _, symbol := range dict.SortedKeys(cs, compare.Ordered[string]) {
		if cs[symbol].Translation {
			res = append(res, symbol)
		}
	}
	return res
}
