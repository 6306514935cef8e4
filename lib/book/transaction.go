package book

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/common/dict"
)

// Transaction owns the entries, trades and fees of one economic event.
type Transaction struct {
	ID      string
	UTC     time.Time
	Credit  string // default account for credit entries
	Debit   string // default account for debit entries
	Status  string
	Party   string
	Address string
	Note    string
	Tags    []string
	Entries []*Entry
	Trades  []string // raw trade shortcuts, retained for serialization
	Fees    []*Entry
	Details map[string]string
}

// AccountRef names the default accounts of a transaction, either as a
// single account for both sides or as separate credit/debit paths.
type AccountRef struct {
	Credit string `yaml:"credit"`
	Debit  string `yaml:"debit"`
}

// UnmarshalYAML accepts either a bare account string or a mapping with
// credit and debit keys.
func (r *AccountRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		r.Credit, r.Debit = raw, raw
		return nil
	}
	type plain AccountRef
	return unmarshal((*plain)(r))
}

// TransactionSpec describes one transaction of the journal.
type TransactionSpec struct {
	ID      string            `yaml:"id"`
	UTC     string            `yaml:"utc"`
	Account AccountRef        `yaml:"account"`
	Status  string            `yaml:"status"`
	Party   string            `yaml:"party"`
	Address string            `yaml:"address"`
	Note    string            `yaml:"note"`
	Tags    []string          `yaml:"tags"`
	Entries []PostingSpec     `yaml:"entries"`
	Debits  []EntrySpec       `yaml:"debits"`
	Credits []EntrySpec       `yaml:"credits"`
	Trades  []string          `yaml:"trades"`
	Fees    []string          `yaml:"fees"`
	Details map[string]string `yaml:"details"`
}

// NewTransaction builds a transaction and its entries. A missing UTC is
// fatal. Trade parse failures are not: the transaction is still built
// from the remaining trades, and the accumulated errors are returned
// alongside it for the caller to inspect (see multierr.Errors).
func NewTransaction(spec TransactionSpec) (*Transaction, error) {
	if spec.UTC == "" {
		return nil, fmt.Errorf("%w: transaction has no utc", ErrInvalidTerm)
	}
	utc, err := date.Parse(spec.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTerm, err)
	}
	t := &Transaction{
		ID:      spec.ID,
		UTC:     utc,
		Credit:  spec.Account.Credit,
		Debit:   spec.Account.Debit,
		Status:  spec.Status,
		Party:   spec.Party,
		Address: spec.Address,
		Note:    spec.Note,
		Tags:    spec.Tags,
		Trades:  spec.Trades,
		Details: spec.Details,
	}
	entries, err := MakeBalancedPairs(t, spec.Entries)
	if err != nil {
		return nil, err
	}
	t.append(entries...)
	debits, err := MakeEntries(t, Debit, spec.Debits)
	if err != nil {
		return nil, err
	}
	t.append(debits...)
	credits, err := MakeEntries(t, Credit, spec.Credits)
	if err != nil {
		return nil, err
	}
	t.append(credits...)
	trades, tradeErrs := MakeTrades(t, spec.Trades)
	t.append(trades...)
	fees, err := makeFees(t, spec.Fees)
	if err != nil {
		return nil, err
	}
	for i, f := range fees {
		f.Index = len(t.Entries) + i
	}
	t.Fees = fees
	if t.ID == "" {
		t.ID = t.hash()
	}
	return t, tradeErrs
}

// append adds entries, numbering them by position.
func (t *Transaction) append(entries ...*Entry) {
	for _, e := range entries {
		e.Index = len(t.Entries)
		t.Entries = append(t.Entries, e)
	}
}

func (t *Transaction) defaultAccount(side Side) string {
	if side == Debit {
		return t.Debit
	}
	return t.Credit
}

// IsBalanced reports whether every debit entry has a properly balanced
// pair.
func (t *Transaction) IsBalanced() bool {
	for _, e := range t.Entries {
		if e.Side == Debit && !e.IsBalanced() {
			return false
		}
	}
	return true
}

// ApplyToAccounts resolves every entry's account and appends the entry
// to it. An unresolvable account is a warning, not a fatal condition:
// inconsistent journals should still load, highlighting what is
// missing. Resolved accounts normalize the entry's account to the
// canonical path.
func (t *Transaction) ApplyToAccounts(accounts *Accounts) []string {
	var warnings []string
	apply := func(e *Entry) {
		a, err := accounts.Get(e.Account)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("transaction %s: account %q not found", t.ID, e.Account))
			return
		}
		e.Account = a.Path
		a.Entries = append(a.Entries, e)
	}
	for _, e := range t.Entries {
		apply(e)
	}
	for _, e := range t.Fees {
		apply(e)
	}
	return warnings
}

// Compare orders transactions by date, then ID.
func Compare(t1, t2 *Transaction) compare.Order {
	if o := compare.Time(t1.UTC, t2.UTC); o != compare.Equal {
		return o
	}
	return compare.Ordered(t1.ID, t2.ID)
}

// hash derives the transaction's ID from its canonical object form.
// The field order of toObject is fixed, keeping hashes reproducible
// across equal inputs.
func (t *Transaction) hash() string {
	bs, err := yaml.Marshal(t.toObject(false))
	if err != nil {
		// The canonical form marshals primitives only.
		panic(err)
	}
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])[:16]
}

// ToObject returns the serializable projection of the transaction.
func (t *Transaction) ToObject() yaml.MapSlice {
	return t.toObject(true)
}

func (t *Transaction) toObject(withID bool) yaml.MapSlice {
	var res yaml.MapSlice
	if withID {
		res = append(res, yaml.MapItem{Key: "id", Value: t.ID})
	}
	res = append(res,
		yaml.MapItem{Key: "utc", Value: t.UTC.Format(time.RFC3339)},
		yaml.MapItem{Key: "account", Value: yaml.MapSlice{
			{Key: "credit", Value: t.Credit},
			{Key: "debit", Value: t.Debit},
		}},
	)
	if t.Status != "" {
		res = append(res, yaml.MapItem{Key: "status", Value: t.Status})
	}
	if t.Party != "" {
		res = append(res, yaml.MapItem{Key: "party", Value: t.Party})
	}
	if t.Address != "" {
		res = append(res, yaml.MapItem{Key: "address", Value: t.Address})
	}
	if t.Note != "" {
		res = append(res, yaml.MapItem{Key: "note", Value: t.Note})
	}
	if len(t.Tags) > 0 {
		res = append(res, yaml.MapItem{Key: "tags", Value: t.Tags})
	}
	if len(t.Entries) > 0 {
		entries := make([]yaml.MapSlice, 0, len(t.Entries))
		for _, e := range t.Entries {
			entries = append(entries, e.ToObject())
		}
		res = append(res, yaml.MapItem{Key: "entries", Value: entries})
	}
	if len(t.Trades) > 0 {
		res = append(res, yaml.MapItem{Key: "trades", Value: t.Trades})
	}
	if len(t.Fees) > 0 {
		fees := make([]yaml.MapSlice, 0, len(t.Fees))
		for _, f := range t.Fees {
			fees = append(fees, f.ToObject())
		}
		res = append(res, yaml.MapItem{Key: "fees", Value: fees})
	}
	if len(t.Details) > 0 {
		details := make(yaml.MapSlice, 0, len(t.Details))
		for _, k := range dict.SortedKeys(t.Details, compare.Ordered[string]) {
			details = append(details, yaml.MapItem{Key: k, Value: t.Details[k]})
		}
		res = append(res, yaml.MapItem{Key: "details", Value: details})
	}
	return res
}
