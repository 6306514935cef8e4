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

// Package journal aggregates accounts, currencies, transactions and
// price history into one consistent ledger.
package journal

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/book"
	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/price"
)

// Journal is a fully applied ledger. After construction, every
// transaction has been applied to the accounts and all balancing
// entries exist: the journal is never observed partially applied.
type Journal struct {
	Accounts     *book.Accounts
	Currencies   book.Currencies
	Transactions []*book.Transaction
	Prices       price.History

	// Warnings collects non-fatal findings from the build: unresolvable
	// entry accounts and unparseable trade lines. The core performs no
	// logging; callers decide how to surface these.
	Warnings []string
}

// Build constructs a journal from decoded source data and applies the
// whole pipeline: transactions to accounts, then balancing entries.
func Build(src *Source) (*Journal, error) {
	j := &Journal{
		Currencies: make(book.Currencies),
		Prices:     price.NewHistory(),
	}
	for symbol, spec := range src.Currencies {
		j.Currencies[symbol] = &book.Currency{
			Symbol:      symbol,
			Note:        spec.Note,
			Fiat:        spec.Fiat,
			Translation: spec.Translation,
		}
	}
	for _, spec := range src.Prices {
		p, err := spec.Price()
		if err != nil {
			return nil, err
		}
		j.Prices.Insert(p)
	}
	j.Accounts = book.NewAccounts(src.Accounts)
	for _, spec := range src.Transactions {
		t, err := book.NewTransaction(spec)
		if err != nil {
			if t == nil {
				return nil, err
			}
			for _, e := range multierr.Errors(err) {
				j.Warnings = append(j.Warnings, fmt.Sprintf("transaction %s: %v", t.ID, e))
			}
		}
		j.Transactions = append(j.Transactions, t)
	}
	compare.Sort(j.Transactions, book.Compare)
	if j.Accounts.Len() > 0 && len(j.Transactions) > 0 {
		for _, t := range j.Transactions {
			j.Warnings = append(j.Warnings, t.ApplyToAccounts(j.Accounts)...)
		}
		if err := j.Accounts.CreateBalancingEntries(); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// IsBalanced reports whether every transaction is balanced.
func (j *Journal) IsBalanced() bool {
	for _, t := range j.Transactions {
		if !t.IsBalanced() {
			return false
		}
	}
	return true
}

// Lots computes (or returns the memoized) cost-basis lots.
func (j *Journal) Lots(force, lifo bool) ([]*book.Lot, error) {
	return j.Accounts.Lots(j.Currencies, force, lifo)
}

// CapitalGains emits the realized gain entries of every lot, valued in
// the given fiat currency.
func (j *Journal) CapitalGains(fiat, gainsAccount string, within time.Duration, lifo bool) ([]*book.Entry, error) {
	lots, err := j.Lots(false, lifo)
	if err != nil {
		return nil, err
	}
	var res []*book.Entry
	for _, l := range lots {
		entries, err := l.CapitalGains(j.Prices, fiat, gainsAccount, j.Currencies.Translations(), within)
		if err != nil {
			return nil, err
		}
		res = append(res, entries...)
	}
	return res, nil
}

// CapitalGainsDetails returns the annotated gain records of every lot,
// optionally restricted to sales within the inclusive window.
func (j *Journal) CapitalGainsDetails(fiat string, within time.Duration, lifo bool, start, end time.Time) ([]book.GainDetail, error) {
	lots, err := j.Lots(false, lifo)
	if err != nil {
		return nil, err
	}
	var res []book.GainDetail
	for _, l := range lots {
		details, err := l.CapitalGainsDetails(j.Prices, fiat, j.Currencies.Translations(), within, start, end)
		if err != nil {
			return nil, err
		}
		res = append(res, details...)
	}
	return res, nil
}

// UnrealizedGains emits one entry per still-open lot, valued at the
// market price of the given instant.
func (j *Journal) UnrealizedGains(utc time.Time, fiat, gainsAccount string, within time.Duration, lifo bool) ([]*book.Entry, error) {
	lots, err := j.Lots(false, lifo)
	if err != nil {
		return nil, err
	}
	var res []*book.Entry
	for _, l := range lots {
		e, err := l.UnrealizedGains(utc, j.Prices, fiat, gainsAccount, j.Currencies.Translations(), within)
		if err != nil {
			return nil, err
		}
		if e != nil {
			res = append(res, e)
		}
	}
	return res, nil
}

// ToObject returns the serializable projection of the journal.
func (j *Journal) ToObject() yaml.MapSlice {
	transactions := make([]yaml.MapSlice, 0, len(j.Transactions))
	for _, t := range j.Transactions {
		transactions = append(transactions, t.ToObject())
	}
	accounts := make(yaml.MapSlice, 0)
	for _, a := range j.Accounts.All() {
		if a.Parent == nil {
			accounts = append(accounts, yaml.MapItem{Key: a.Segment(), Value: a.ToObject()})
		}
	}
	return yaml.MapSlice{
		{Key: "accounts", Value: accounts},
		{Key: "transactions", Value: transactions},
	}
}
