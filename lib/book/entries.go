package book

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/sboehler/coinbook/lib/shortcut"
)

// PostingSpec is one element of a transaction's entries list: either a
// bare shortcut string, which expands to a balanced pair, or a mapping
// with explicit debit and credit lists.
type PostingSpec struct {
	Shortcut string      `yaml:"shortcut"`
	Debits   []EntrySpec `yaml:"debits"`
	Credits  []EntrySpec `yaml:"credits"`
}

// UnmarshalYAML accepts either a bare shortcut string or a mapping.
func (s *PostingSpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		s.Shortcut = raw
		return nil
	}
	type plain PostingSpec
	return unmarshal((*plain)(s))
}

// MakeEntries creates entries of a uniform side from a list of specs.
// A shortcut spec expands to a balanced pair with its explicit leg on
// the given side; an explicit quantity/currency spec contributes a
// single unpaired entry.
func MakeEntries(trans *Transaction, side Side, specs []EntrySpec) ([]*Entry, error) {
	var res []*Entry
	for _, spec := range specs {
		if spec.Shortcut != "" {
			entries, err := shortcutToEntries(trans, spec.Shortcut, side)
			if err != nil {
				return nil, err
			}
			res = append(res, entries...)
			continue
		}
		e, err := NewEntry(trans, side, spec)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// MakeBalancedPairs expands a list of posting specs: shortcut strings
// become balanced credit/debit pairs, mappings contribute their
// explicit debit and credit lists.
func MakeBalancedPairs(trans *Transaction, specs []PostingSpec) ([]*Entry, error) {
	var res []*Entry
	for _, spec := range specs {
		if spec.Shortcut != "" {
			entries, err := ShortcutToEntries(trans, spec.Shortcut)
			if err != nil {
				return nil, err
			}
			res = append(res, entries...)
			continue
		}
		debits, err := MakeEntries(trans, Debit, spec.Debits)
		if err != nil {
			return nil, err
		}
		credits, err := MakeEntries(trans, Credit, spec.Credits)
		if err != nil {
			return nil, err
		}
		res = append(res, debits...)
		res = append(res, credits...)
	}
	return res, nil
}

// ShortcutToEntries expands a single shortcut into a balanced pair of
// entries. A shortcut without a connector synthesizes the missing leg:
// the tokens form the credit, and an implicit debit in the
// transaction's default debit account balances it. A leading "="
// reverses the roles, putting the explicit tokens on the debit side.
// A shortcut with a connector is a trade.
func ShortcutToEntries(trans *Transaction, raw string) ([]*Entry, error) {
	return shortcutToEntries(trans, raw, Credit)
}

func shortcutToEntries(trans *Transaction, raw string, explicit Side) ([]*Entry, error) {
	if trans == nil {
		return nil, fmt.Errorf("%w: entries require a transaction", ErrInvalidTerm)
	}
	tokens, comment, err := shortcut.Tokenize(raw)
	if err != nil {
		return nil, err
	}
	// A leading "=", attached or free-standing, marks the group as a
	// self-balanced debit.
	selfDebit := false
	if tokens[0] == string(shortcut.Total) {
		selfDebit = true
		explicit = Debit
		tokens = tokens[1:]
	} else if strings.HasPrefix(tokens[0], string(shortcut.Total)) {
		selfDebit = true
		explicit = Debit
		tokens = append([]string{strings.TrimPrefix(tokens[0], string(shortcut.Total))}, tokens[1:]...)
	}
	groups, _ := shortcut.Groups(tokens)
	if len(groups) == 1 {
		return balancedPair(trans, groups[0], comment, explicit)
	}
	if selfDebit {
		return nil, fmt.Errorf("%w: %q mixes a leading %q with a connector", shortcut.ErrInvalidTrade, raw, shortcut.Total)
	}
	trade, err := shortcut.ParseTrade(raw)
	if err != nil {
		return nil, err
	}
	return tradeToEntries(trans, trade)
}

// balancedPair builds a credit/debit pair from a single token group.
// A negative quantity flips which side the explicit tokens land on.
func balancedPair(trans *Transaction, group []string, comment string, explicit Side) ([]*Entry, error) {
	if err := shortcut.CheckGroup(group); err != nil {
		return nil, err
	}
	quantity, currency, account, err := splitGroup(group)
	if err != nil {
		return nil, err
	}
	if quantity.IsNegative() {
		quantity = quantity.Neg()
		explicit = explicit.Other()
	}
	implicit := explicit.Other()
	first, err := trans.newEntry(explicit, quantity, currency, account, comment)
	if err != nil {
		return nil, err
	}
	second, err := trans.newEntry(implicit, quantity, currency, "", "")
	if err != nil {
		return nil, err
	}
	first.SetPair(second, false)
	return []*Entry{first, second}, nil
}

// tradeToEntries builds the debit/credit pair of a parsed trade. The
// per-unit conversion always runs from the leg the shortcut stated
// first, so a reversed trade prices its debit side.
func tradeToEntries(trans *Transaction, trade *shortcut.Trade) ([]*Entry, error) {
	debit, err := tradeEntry(trans, Debit, trade.Debit, trade.Comment)
	if err != nil {
		return nil, err
	}
	credit, err := tradeEntry(trans, Credit, trade.Credit, trade.Comment)
	if err != nil {
		return nil, err
	}
	first, second := debit, credit
	if trade.Reversed {
		first, second = credit, debit
	}
	first.SetPair(second, trade.Connector == shortcut.PerUnit)
	return []*Entry{debit, credit}, nil
}

func tradeEntry(trans *Transaction, side Side, group []string, comment string) (*Entry, error) {
	quantity, currency, account, err := splitGroup(group)
	if err != nil {
		return nil, err
	}
	e, err := trans.newEntry(side, quantity, currency, account, comment)
	if err != nil {
		return nil, err
	}
	e.FromTrade = true
	return e, nil
}

// MakeTrades expands trade shortcuts into entry pairs. A bad trade
// line does not abort the remaining trades: its error is accumulated
// and the result carries every pair that parsed.
func MakeTrades(trans *Transaction, raws []string) ([]*Entry, error) {
	var (
		res  []*Entry
		errs error
	)
	for _, raw := range raws {
		trade, err := shortcut.ParseTrade(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		entries, err := tradeToEntries(trans, trade)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		res = append(res, entries...)
	}
	return res, errs
}

// makeFees builds fee entries from shortcuts. Fees are credits from
// the transaction's default credit account unless the shortcut
// overrides the account.
func makeFees(trans *Transaction, raws []string) ([]*Entry, error) {
	var res []*Entry
	for _, raw := range raws {
		parsed, err := shortcut.ParseEntry(raw)
		if err != nil {
			return nil, err
		}
		quantity, currency, account, err := splitGroup(parsed.Tokens)
		if err != nil {
			return nil, err
		}
		e, err := trans.newEntry(Credit, quantity, currency, account, parsed.Comment)
		if err != nil {
			return nil, err
		}
		e.Fee = true
		res = append(res, e)
	}
	return res, nil
}

// newEntry builds an already-parsed entry, defaulting the account to
// the transaction's side default.
func (t *Transaction) newEntry(side Side, quantity decimal.Decimal, currency, account, note string) (*Entry, error) {
	if account == "" {
		account = t.defaultAccount(side)
	}
	e := &Entry{
		Trans:    t,
		Side:     side,
		Quantity: quantity,
		Currency: currency,
		Account:  account,
		Note:     note,
	}
	if !e.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: entry quantity %s must be positive", ErrInvalidTerm, e.Quantity)
	}
	if e.Currency == "" {
		return nil, fmt.Errorf("%w: entry has no currency", ErrInvalidTerm)
	}
	return e, nil
}
