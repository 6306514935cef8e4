package book

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/num"
	"github.com/sboehler/coinbook/lib/price"
)

// Lot is a cost-basis bucket: one opening debit plus the credits
// applied against it over time. A lot is open while any quantity
// remains; it is only ever exhausted, never destroyed.
type Lot struct {
	Account  *Account
	Currency string
	UTC      time.Time
	Debits   []Application
	Credits  []Application
}

// Application records an entry's quantity applied to a lot, along with
// the fees of the entry's transaction.
type Application struct {
	Entry   *Entry
	Fees    []*Entry
	Applied decimal.Decimal
}

// NewLot opens a lot from a lot-worthy debit, applying the debit's
// full quantity.
func NewLot(account *Account, debit *Entry) *Lot {
	l := &Lot{
		Account:  account,
		Currency: debit.Currency,
		UTC:      debit.Trans.UTC,
	}
	applied := debit.SetLot(l, debit.Quantity)
	l.Debits = append(l.Debits, Application{Entry: debit, Fees: debit.Trans.Fees, Applied: applied})
	return l
}

// Total is the acquired quantity.
func (l *Lot) Total() decimal.Decimal {
	var res decimal.Decimal
	for _, a := range l.Debits {
		res = res.Add(a.Applied)
	}
	return res
}

// Used is the quantity consumed by credits.
func (l *Lot) Used() decimal.Decimal {
	var res decimal.Decimal
	for _, a := range l.Credits {
		res = res.Add(a.Applied)
	}
	return res
}

// Remaining is the still-held quantity. Total == Used + Remaining
// holds in all states.
func (l *Lot) Remaining() decimal.Decimal {
	return l.Total().Sub(l.Used())
}

// Open reports whether any quantity remains.
func (l *Lot) Open() bool {
	return l.Remaining().IsPositive()
}

// AddCredit applies as much of the credit's remaining quantity as the
// lot can absorb and returns the applied amount.
func (l *Lot) AddCredit(c *Entry) decimal.Decimal {
	applied := c.SetLot(l, c.LotCreditRemaining())
	if applied.IsPositive() {
		l.Credits = append(l.Credits, Application{Entry: c, Fees: c.Trans.Fees, Applied: applied})
	}
	return applied
}

// CompareLots orders lots by acquisition date, then currency. FIFO and
// LIFO both use this order; only the search direction differs.
func CompareLots(l1, l2 *Lot) compare.Order {
	if o := compare.Time(l1.UTC, l2.UTC); o != compare.Equal {
		return o
	}
	return compare.Ordered(l1.Currency, l2.Currency)
}

// PurchasePriceEach derives the fiat cost per acquired unit from the
// opening debit's paired credit, plus amortized fees. No price lookup
// runs when the paired credit is already in fiat.
func (l *Lot) PurchasePriceEach(hist price.History, fiat string, translations []string, within time.Duration) (decimal.Decimal, error) {
	if len(l.Debits) == 0 {
		return decimal.Zero, fmt.Errorf("%w: lot has no opening debit", ErrInvalidTerm)
	}
	opening := l.Debits[0]
	credit := opening.Entry.Pair
	if credit == nil {
		return decimal.Zero, fmt.Errorf("%w: opening debit of lot %s/%s has no pair", ErrInvalidTerm, l.Account.Path, l.Currency)
	}
	each := num.Div(credit.Quantity, opening.Entry.Quantity)
	if credit.Currency != fiat {
		p, err := hist.Find(l.UTC, credit.Currency, fiat, within, translations)
		if err != nil {
			return decimal.Zero, err
		}
		each = num.Mul(each, p.Rate)
	}
	fees, err := feesEach(opening, hist, fiat, translations, within)
	if err != nil {
		return decimal.Zero, err
	}
	return each.Add(fees), nil
}

// feesEach converts an application's fees to fiat and amortizes them
// over the applied quantity.
func feesEach(a Application, hist price.History, fiat string, translations []string, within time.Duration) (decimal.Decimal, error) {
	if len(a.Fees) == 0 || !a.Applied.IsPositive() {
		return decimal.Zero, nil
	}
	var total decimal.Decimal
	for _, f := range a.Fees {
		value := f.Quantity
		if f.Currency != fiat {
			p, err := hist.Find(f.Trans.UTC, f.Currency, fiat, within, translations)
			if err != nil {
				return decimal.Zero, err
			}
			value = num.Mul(value, p.Rate)
		}
		total = total.Add(value)
	}
	return num.Div(total, a.Applied), nil
}

// SalePriceEach derives the fiat proceeds per unit at the sale instant
// from the credit's paired debit.
func SalePriceEach(credit *Entry, hist price.History, fiat string, translations []string, within time.Duration) (decimal.Decimal, error) {
	debit := credit.Pair
	if debit == nil {
		return decimal.Zero, fmt.Errorf("%w: sale credit of %s %s has no pair", ErrInvalidTerm, credit.Quantity, credit.Currency)
	}
	each := num.Div(debit.Quantity, credit.Quantity)
	if debit.Currency != fiat {
		p, err := hist.Find(credit.Trans.UTC, debit.Currency, fiat, within, translations)
		if err != nil {
			return decimal.Zero, err
		}
		each = num.Mul(each, p.Rate)
	}
	return each, nil
}

// CapitalGains emits one synthetic gain entry per credit application.
// The per-application grain matters for audit trails: applications are
// never aggregated. Gains are virtual debits into the gains account;
// losses are virtual credits.
func (l *Lot) CapitalGains(hist price.History, fiat, gainsAccount string, translations []string, within time.Duration) ([]*Entry, error) {
	purchase, err := l.PurchasePriceEach(hist, fiat, translations, within)
	if err != nil {
		return nil, err
	}
	var res []*Entry
	for _, ca := range l.Credits {
		sale, err := SalePriceEach(ca.Entry, hist, fiat, translations, within)
		if err != nil {
			return nil, err
		}
		profit := num.Mul(sale.Sub(purchase), ca.Applied)
		if profit.IsZero() {
			continue
		}
		side := Debit
		if profit.IsNegative() {
			side, profit = Credit, profit.Neg()
		}
		res = append(res, &Entry{
			Trans:    ca.Entry.Trans,
			Quantity: profit,
			Currency: fiat,
			Account:  gainsAccount,
			Side:     side,
			Note:     fmt.Sprintf("realized gain on %s %s", ca.Applied, l.Currency),
			Virtual:  true,
		})
	}
	return res, nil
}

// GainDetail is one fully annotated credit application for reporting.
type GainDetail struct {
	Currency     string
	Quantity     decimal.Decimal
	Account      string
	SaleAccount  string
	PurchaseUTC  time.Time
	SaleUTC      time.Time
	PurchaseEach decimal.Decimal
	SaleEach     decimal.Decimal
	Cost         decimal.Decimal
	Proceeds     decimal.Decimal
	Profit       decimal.Decimal
}

// CapitalGainsDetails returns a flat record per credit application,
// optionally restricted to sales within the inclusive [start, end]
// window. Zero times disable the respective bound.
func (l *Lot) CapitalGainsDetails(hist price.History, fiat string, translations []string, within time.Duration, start, end time.Time) ([]GainDetail, error) {
	purchase, err := l.PurchasePriceEach(hist, fiat, translations, within)
	if err != nil {
		return nil, err
	}
	var res []GainDetail
	for _, ca := range l.Credits {
		utc := ca.Entry.Trans.UTC
		if !start.IsZero() && utc.Before(start) {
			continue
		}
		if !end.IsZero() && utc.After(end) {
			continue
		}
		sale, err := SalePriceEach(ca.Entry, hist, fiat, translations, within)
		if err != nil {
			return nil, err
		}
		cost := num.Mul(purchase, ca.Applied)
		proceeds := num.Mul(sale, ca.Applied)
		res = append(res, GainDetail{
			Currency:     l.Currency,
			Quantity:     ca.Applied,
			Account:      l.Account.Path,
			SaleAccount:  ca.Entry.Account,
			PurchaseUTC:  l.UTC,
			SaleUTC:      utc,
			PurchaseEach: purchase,
			SaleEach:     sale,
			Cost:         cost,
			Proceeds:     proceeds,
			Profit:       proceeds.Sub(cost),
		})
	}
	return res, nil
}

// UnrealizedGains computes the profit on the still-open remainder at
// the market price of the given instant, as a single synthetic entry.
// A closed lot yields nil.
func (l *Lot) UnrealizedGains(utc time.Time, hist price.History, fiat, gainsAccount string, translations []string, within time.Duration) (*Entry, error) {
	remaining := l.Remaining()
	if !remaining.IsPositive() {
		return nil, nil
	}
	purchase, err := l.PurchasePriceEach(hist, fiat, translations, within)
	if err != nil {
		return nil, err
	}
	market, err := hist.Find(utc, l.Currency, fiat, within, translations)
	if err != nil {
		return nil, err
	}
	profit := num.Mul(market.Rate.Sub(purchase), remaining)
	side := Debit
	if profit.IsNegative() {
		side, profit = Credit, profit.Neg()
	}
	var trans *Transaction
	if len(l.Debits) > 0 {
		trans = l.Debits[0].Entry.Trans
	}
	return &Entry{
		Trans:    trans,
		Quantity: profit,
		Currency: fiat,
		Account:  gainsAccount,
		Side:     side,
		Note:     fmt.Sprintf("unrealized gain on %s %s", remaining, l.Currency),
		Virtual:  true,
	}, nil
}

// ToObject returns the serializable projection of the lot.
func (l *Lot) ToObject() yaml.MapSlice {
	applications := func(as []Application) []yaml.MapSlice {
		res := make([]yaml.MapSlice, 0, len(as))
		for _, a := range as {
			res = append(res, yaml.MapSlice{
				{Key: "utc", Value: a.Entry.Trans.UTC.Format(time.RFC3339)},
				{Key: "account", Value: a.Entry.Account},
				{Key: "applied", Value: num.Fixed(a.Applied)},
			})
		}
		return res
	}
	return yaml.MapSlice{
		{Key: "account", Value: l.Account.Path},
		{Key: "currency", Value: l.Currency},
		{Key: "utc", Value: l.UTC.Format(time.RFC3339)},
		{Key: "total", Value: num.Fixed(l.Total())},
		{Key: "used", Value: num.Fixed(l.Used())},
		{Key: "remaining", Value: num.Fixed(l.Remaining())},
		{Key: "debits", Value: applications(l.Debits)},
		{Key: "credits", Value: applications(l.Credits)},
	}
}
