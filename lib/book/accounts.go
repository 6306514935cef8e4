package book

import (
	"fmt"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/dict"
)

// Accounts is the registry of account trees. It maintains lazily built
// path and alias caches and owns the ledger-wide lot list once
// computed.
type Accounts struct {
	roots map[string]*Account

	// caches, built by CalculatePaths. Structural mutation requires an
	// explicit recompute; there is no automatic invalidation.
	paths   map[string]*Account
	aliases map[string]*Account

	// lots is the memoized result of Lots.
	lots []*Lot
}

// NewAccounts builds the registry from nested account descriptions.
func NewAccounts(specs map[string]AccountSpec) *Accounts {
	as := &Accounts{roots: make(map[string]*Account)}
	for _, name := range dict.SortedKeys(specs, compare.Ordered[string]) {
		as.roots[name] = newAccount(nil, name, specs[name])
	}
	return as
}

// Len returns the number of accounts in the registry.
func (as *Accounts) Len() int {
	as.ensurePaths()
	return len(as.paths)
}

// CalculatePaths rebuilds the path and alias caches. Call it after
// structural changes to the account trees.
func (as *Accounts) CalculatePaths() {
	as.paths = make(map[string]*Account)
	as.aliases = make(map[string]*Account)
	for _, root := range as.roots {
		as.index(root)
	}
}

func (as *Accounts) index(a *Account) {
	as.paths[a.Path] = a
	if a.Alias != "" {
		as.aliases[a.Alias] = a
	}
	for _, child := range a.Children {
		as.index(child)
	}
}

func (as *Accounts) ensurePaths() {
	if as.paths == nil {
		as.CalculatePaths()
	}
}

// Get resolves an account by alias first, then by path.
func (as *Accounts) Get(term string) (*Account, error) {
	as.ensurePaths()
	if a, ok := as.aliases[term]; ok {
		return a, nil
	}
	if a, ok := as.paths[term]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: account %q", ErrNotFound, term)
}

// All returns every account, ordered by path.
func (as *Accounts) All() []*Account {
	as.ensurePaths()
	return dict.SortedValues(as.paths, CompareAccounts)
}

// CreateBalancingEntries materializes the virtual offsetting entries
// for every account with a configured balancing target. An
// unresolvable target indicates a malformed chart of accounts and is
// fatal.
func (as *Accounts) CreateBalancingEntries() error {
	for _, a := range as.All() {
		if a.Balancing == "" {
			continue
		}
		target, err := as.Get(a.Balancing)
		if err != nil {
			return fmt.Errorf("resolving balancing account %q of %q: %w", a.Balancing, a.Path, err)
		}
		for _, e := range a.Entries {
			if e.Virtual || e.Balancing != nil {
				continue
			}
			b := &Entry{
				Trans:    e.Trans,
				Quantity: e.Quantity,
				Currency: e.Currency,
				Account:  target.Path,
				Side:     e.Side.Other(),
				Note:     "balancing " + a.Path,
				Virtual:  true,
				Index:    len(e.Trans.Entries),
			}
			e.Balancing = b
			b.Trans.Entries = append(b.Trans.Entries, b)
			target.Entries = append(target.Entries, b)
		}
	}
	return nil
}

// Lots computes the ledger-wide cost-basis lots, matching credits
// against open lots in FIFO order, or LIFO when lifo is set. The
// result is memoized: without force, a cached result is returned
// as-is.
//
// The matching is the most order-sensitive computation in the ledger.
// Lots sort by (acquisition date, currency) and credits by
// (transaction date, transaction ID, entry index); both sorts are
// stable, so repeated runs on unchanged input produce identical
// results.
func (as *Accounts) Lots(currencies Currencies, force, lifo bool) ([]*Lot, error) {
	if as.lots != nil && !force {
		return as.lots, nil
	}
	accounts := as.All()
	for _, a := range accounts {
		for _, e := range a.Entries {
			e.Lots = nil
		}
	}
	var lots []*Lot
	for _, a := range accounts {
		for _, e := range a.Entries {
			if as.isLot(currencies, e) {
				lots = append(lots, NewLot(a, e))
			}
		}
	}
	compare.Sort(lots, CompareLots)
	var credits []*Entry
	for _, a := range accounts {
		if a.Virtual {
			continue
		}
		for _, e := range a.Entries {
			if isLotCredit(currencies, e) {
				credits = append(credits, e)
			}
		}
	}
	compare.Sort(credits, CompareEntries)
	for _, c := range credits {
		for c.LotCreditRemaining().IsPositive() {
			l := findOpen(lots, c.Currency, lifo)
			if l == nil {
				return nil, fmt.Errorf("%w: credit of %s %s in %q has %s unmatched",
					ErrExhausted, c.Quantity, c.Currency, c.Account, c.LotCreditRemaining())
			}
			l.AddCredit(c)
		}
	}
	as.lots = lots
	return lots, nil
}

// isLot reports whether a debit opens a cost-basis lot: a non-fiat
// debit which either came from a trade or was received from an income
// account.
func (as *Accounts) isLot(currencies Currencies, e *Entry) bool {
	if e.Side != Debit || e.Virtual || currencies.IsFiat(e.Currency) {
		return false
	}
	if e.FromTrade {
		return true
	}
	if e.Pair == nil {
		return false
	}
	source, err := as.Get(e.Pair.Account)
	return err == nil && source.IsIncome()
}

// isLotCredit reports whether a credit consumes lots: a non-virtual,
// non-fiat credit representing a trade or a fee.
func isLotCredit(currencies Currencies, e *Entry) bool {
	return e.Side == Credit &&
		!e.Virtual &&
		(e.FromTrade || e.Fee) &&
		!currencies.IsFiat(e.Currency)
}

// findOpen returns the first (FIFO) or last (LIFO) open lot of the
// currency.
func findOpen(lots []*Lot, currency string, lifo bool) *Lot {
	if lifo {
		for i := len(lots) - 1; i >= 0; i-- {
			if lots[i].Currency == currency && lots[i].Open() {
				return lots[i]
			}
		}
		return nil
	}
	for _, l := range lots {
		if l.Currency == currency && l.Open() {
			return l
		}
	}
	return nil
}
