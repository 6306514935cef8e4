package book

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/num"
	"github.com/sboehler/coinbook/lib/shortcut"
)

// Side is the side of a posting.
type Side int

const (
	// Credit is the source side of a movement.
	Credit Side = iota
	// Debit is the destination side of a movement.
	Debit
)

func (s Side) String() string {
	if s == Debit {
		return "debit"
	}
	return "credit"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

// Entry is a single posting: one side of a ledger movement. The
// quantity is always positive; the side conveys the sign.
type Entry struct {
	Trans    *Transaction
	Quantity decimal.Decimal
	Currency string
	Account  string
	Side     Side
	Note     string

	// Virtual marks synthetic entries (balancing entries, derived gain
	// entries) which exist for bookkeeping only.
	Virtual bool

	// FromTrade marks entries created from a trade shortcut.
	FromTrade bool

	// Fee marks fee entries.
	Fee bool

	// Index is the position of the entry within its transaction. It
	// breaks ties when ordering credits for lot matching.
	Index int

	// Balancing references the auto-generated opposite entry, if any.
	Balancing *Entry

	// Pair references the other leg of a two-sided posting. The
	// relation is symmetric: e.Pair.Pair == e.
	Pair *Entry

	// Lots records how much of this entry was consumed by each lot.
	// The entry does not own its lots.
	Lots []LotApplication
}

// LotApplication records the quantity of an entry applied to a lot.
type LotApplication struct {
	Lot     *Lot
	Applied decimal.Decimal
}

// EntrySpec describes one entry of a transaction. A shortcut and an
// explicit quantity/currency pair are mutually exclusive.
type EntrySpec struct {
	Shortcut string `yaml:"shortcut"`
	Quantity string `yaml:"quantity"`
	Currency string `yaml:"currency"`
	Account  string `yaml:"account"`
	Note     string `yaml:"note"`
	Virtual  bool   `yaml:"virtual"`
}

// UnmarshalYAML accepts either a bare shortcut string or a mapping.
func (s *EntrySpec) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		s.Shortcut = raw
		return nil
	}
	type plain EntrySpec
	return unmarshal((*plain)(s))
}

// NewEntry creates a single entry. The parent transaction is required.
func NewEntry(trans *Transaction, side Side, spec EntrySpec) (*Entry, error) {
	if trans == nil {
		return nil, fmt.Errorf("%w: entry requires a transaction", ErrInvalidTerm)
	}
	if spec.Shortcut != "" && (spec.Quantity != "" || spec.Currency != "") {
		return nil, fmt.Errorf("%w: entry %q has both a shortcut and quantity/currency", ErrInvalidTerm, spec.Shortcut)
	}
	e := &Entry{
		Trans:   trans,
		Side:    side,
		Account: spec.Account,
		Note:    spec.Note,
		Virtual: spec.Virtual,
	}
	if spec.Shortcut != "" {
		if err := e.applyShortcut(spec.Shortcut); err != nil {
			return nil, err
		}
	} else {
		quantity, err := num.Parse(spec.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTerm, err)
		}
		e.Quantity = quantity
		e.Currency = spec.Currency
	}
	if e.Account == "" {
		e.Account = trans.defaultAccount(side)
	}
	if !e.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: entry quantity %s must be positive", ErrInvalidTerm, e.Quantity)
	}
	if e.Currency == "" {
		return nil, fmt.Errorf("%w: entry has no currency", ErrInvalidTerm)
	}
	return e, nil
}

// applyShortcut fills quantity, currency and an optional account
// override from a 2-3 token shortcut.
func (e *Entry) applyShortcut(raw string) error {
	parsed, err := shortcut.ParseEntry(raw)
	if err != nil {
		return err
	}
	quantity, currency, account, err := splitGroup(parsed.Tokens)
	if err != nil {
		return err
	}
	e.Quantity = quantity
	e.Currency = currency
	if account != "" {
		e.Account = account
	}
	if e.Note == "" {
		e.Note = parsed.Comment
	}
	return nil
}

// splitGroup interprets a sanity-checked token group: one quantity and
// one currency in the first two tokens, an optional account third.
func splitGroup(tokens []string) (quantity decimal.Decimal, currency, account string, err error) {
	if len(tokens) > 3 {
		return quantity, "", "", fmt.Errorf("%w: group %v has more than 3 tokens", shortcut.ErrInvalidShortcut, tokens)
	}
	number, currency := tokens[0], tokens[1]
	if !shortcut.IsNumeric(number) {
		number, currency = currency, number
	}
	quantity, err = num.Parse(number)
	if err != nil {
		return quantity, "", "", fmt.Errorf("%w: %v", shortcut.ErrInvalidShortcut, err)
	}
	if len(tokens) == 3 {
		account = tokens[2]
	}
	return quantity, currency, account, nil
}

// SetPair establishes the symmetric pair relation. With perUnit set,
// the partner's quantity is a price per unit of this entry and is
// converted to a total. The guard on partner.Pair ensures the
// multiplication runs exactly once per pair.
func (e *Entry) SetPair(partner *Entry, perUnit bool) {
	e.Pair = partner
	if partner.Pair != e {
		if perUnit {
			partner.Quantity = num.Mul(partner.Quantity, e.Quantity)
		}
		partner.SetPair(e, false)
	}
}

// IsBalanced reports whether the entry has a pair representing an
// actual economic movement. A same-currency, same-account pair is a
// wash: never balanced.
func (e *Entry) IsBalanced() bool {
	return e.Pair != nil && (e.Pair.Currency != e.Currency || e.Pair.Account != e.Account)
}

// LotCreditRemaining returns the portion of a credit entry not yet
// applied to any lot of its currency. Debits have no credit capacity.
func (e *Entry) LotCreditRemaining() decimal.Decimal {
	if e.Side != Credit {
		return decimal.Zero
	}
	remaining := e.Quantity
	for _, la := range e.Lots {
		if la.Lot.Currency == e.Currency {
			remaining = remaining.Sub(la.Applied)
		}
	}
	return remaining
}

// SetLot applies the entry to a lot: a debit applies its full quantity,
// a credit applies at most its remaining capacity, the lot's remaining
// quantity, and max. The application is recorded only when positive.
func (e *Entry) SetLot(l *Lot, max decimal.Decimal) decimal.Decimal {
	var applied decimal.Decimal
	if e.Side == Debit {
		applied = e.Quantity
	} else {
		applied = num.Min(num.Min(e.LotCreditRemaining(), l.Remaining()), max)
	}
	if applied.IsPositive() {
		e.Lots = append(e.Lots, LotApplication{Lot: l, Applied: applied})
	}
	return applied
}

// CompareEntries orders entries for credit application: by transaction
// date, then transaction ID, then position within the transaction.
func CompareEntries(e1, e2 *Entry) compare.Order {
	if o := compare.Time(e1.Trans.UTC, e2.Trans.UTC); o != compare.Equal {
		return o
	}
	if o := compare.Ordered(e1.Trans.ID, e2.Trans.ID); o != compare.Equal {
		return o
	}
	return compare.Ordered(e1.Index, e2.Index)
}

// ToObject returns the serializable projection of the entry.
func (e *Entry) ToObject() yaml.MapSlice {
	res := yaml.MapSlice{
		{Key: "type", Value: e.Side.String()},
		{Key: "quantity", Value: num.Fixed(e.Quantity)},
		{Key: "currency", Value: e.Currency},
		{Key: "account", Value: e.Account},
	}
	if e.Note != "" {
		res = append(res, yaml.MapItem{Key: "note", Value: e.Note})
	}
	if e.Virtual {
		res = append(res, yaml.MapItem{Key: "virtual", Value: true})
	}
	return res
}
