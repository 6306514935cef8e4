package book

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testCurrencies() Currencies {
	return Currencies{
		"USD": {Symbol: "USD", Fiat: true},
		"BTC": {Symbol: "BTC", Translation: true},
		"ETH": {Symbol: "ETH"},
		"GIN": {Symbol: "GIN"},
	}
}

func testAccounts() map[string]AccountSpec {
	return map[string]AccountSpec{
		"assets": {Children: map[string]AccountSpec{
			"exchange": {Alias: "exchange"},
			"wallet":   {},
		}},
		"equity": {},
		"income": {Children: map[string]AccountSpec{
			"mining": {},
		}},
	}
}

// buildLedger constructs the account registry and applies the given
// transactions to it.
func buildLedger(t *testing.T, specs ...TransactionSpec) *Accounts {
	t.Helper()
	as := NewAccounts(testAccounts())
	for _, s := range specs {
		trans, err := NewTransaction(s)
		if err != nil {
			t.Fatalf("NewTransaction(%v): %v", s, err)
		}
		if warnings := trans.ApplyToAccounts(as); len(warnings) > 0 {
			t.Fatalf("ApplyToAccounts: %v", warnings)
		}
	}
	return as
}

func trade(utc, credit, debit string, trades ...string) TransactionSpec {
	return TransactionSpec{
		UTC:     utc,
		Account: AccountRef{Credit: credit, Debit: debit},
		Trades:  trades,
	}
}

func TestGet(t *testing.T) {
	as := NewAccounts(testAccounts())
	tests := []struct {
		term string
		path string
		err  error
	}{
		{term: "assets:exchange", path: "assets:exchange"},
		{term: "exchange", path: "assets:exchange"},
		{term: "income:mining", path: "income:mining"},
		{term: "equity", path: "equity"},
		{term: "nope", err: ErrNotFound},
		{term: "assets:nope", err: ErrNotFound},
	}
	for _, test := range tests {
		a, err := as.Get(test.term)
		if !errors.Is(err, test.err) {
			t.Fatalf("Get(%q): got error %v, want %v", test.term, err, test.err)
		}
		if err != nil {
			continue
		}
		if a.Path != test.path {
			t.Errorf("Get(%q): got path %s, want %s", test.term, a.Path, test.path)
		}
	}
}

func TestAll(t *testing.T) {
	as := NewAccounts(testAccounts())
	all := as.All()
	want := []string{"assets", "assets:exchange", "assets:wallet", "equity", "income", "income:mining"}
	if len(all) != len(want) {
		t.Fatalf("All(): got %d accounts, want %d", len(all), len(want))
	}
	for i, a := range all {
		if a.Path != want[i] {
			t.Errorf("All()[%d]: got %s, want %s", i, a.Path, want[i])
		}
	}
	if as.Len() != len(want) {
		t.Errorf("Len(): got %d, want %d", as.Len(), len(want))
	}
}

func TestLotsFIFO(t *testing.T) {
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
		trade("2018-02-01", "equity", "exchange", "2 BTC @ $1100"),
		trade("2018-03-01", "exchange", "equity", "-0.5 BTC @ $1500"),
	)
	lots, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	checkLots(t, lots, []wantLot{
		{utc: "2018-01-01", total: "1", used: "0.5", remaining: "0.5"},
		{utc: "2018-02-01", total: "2", used: "0", remaining: "2"},
	})
}

func TestLotsLIFO(t *testing.T) {
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
		trade("2018-02-01", "equity", "exchange", "2 BTC @ $1100"),
		trade("2018-03-01", "exchange", "equity", "-0.5 BTC @ $1500"),
	)
	lots, err := as.Lots(testCurrencies(), false, true)
	if err != nil {
		t.Fatal(err)
	}
	checkLots(t, lots, []wantLot{
		{utc: "2018-01-01", total: "1", used: "0", remaining: "1"},
		{utc: "2018-02-01", total: "2", used: "0.5", remaining: "1.5"},
	})
}

type wantLot struct {
	utc       string
	total     string
	used      string
	remaining string
}

func checkLots(t *testing.T, lots []*Lot, want []wantLot) {
	t.Helper()
	if len(lots) != len(want) {
		t.Fatalf("got %d lots, want %d", len(lots), len(want))
	}
	for i, w := range want {
		l := lots[i]
		if got := l.UTC.Format("2006-01-02"); got != w.utc {
			t.Errorf("lot %d: got utc %s, want %s", i, got, w.utc)
		}
		if !l.Total().Equal(decimal.RequireFromString(w.total)) {
			t.Errorf("lot %d: got total %s, want %s", i, l.Total(), w.total)
		}
		if !l.Used().Equal(decimal.RequireFromString(w.used)) {
			t.Errorf("lot %d: got used %s, want %s", i, l.Used(), w.used)
		}
		if !l.Remaining().Equal(decimal.RequireFromString(w.remaining)) {
			t.Errorf("lot %d: got remaining %s, want %s", i, l.Remaining(), w.remaining)
		}
		if !l.Total().Equal(l.Used().Add(l.Remaining())) {
			t.Errorf("lot %d: conservation violated: %s != %s + %s", i, l.Total(), l.Used(), l.Remaining())
		}
	}
}

func TestLotsSpanMultipleCredits(t *testing.T) {
	// One sale larger than the first lot spills into the second.
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
		trade("2018-02-01", "equity", "exchange", "2 BTC @ $1100"),
		trade("2018-03-01", "exchange", "equity", "-1.5 BTC @ $1500"),
	)
	lots, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	checkLots(t, lots, []wantLot{
		{utc: "2018-01-01", total: "1", used: "1", remaining: "0"},
		{utc: "2018-02-01", total: "2", used: "0.5", remaining: "1.5"},
	})
	if lots[0].Open() {
		t.Error("exhausted lot must not be open")
	}
}

func TestLotsExhausted(t *testing.T) {
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
		trade("2018-03-01", "exchange", "equity", "-2 BTC @ $1500"),
	)
	_, err := as.Lots(testCurrencies(), false, false)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("got error %v, want %v", err, ErrExhausted)
	}
}

func TestLotsMemoized(t *testing.T) {
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
	)
	first, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("memoized call changed the result: %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("lot %d: memoized call rebuilt the lot", i)
		}
	}
	// force recomputes from scratch without double-applying credits.
	third, err := as.Lots(testCurrencies(), true, false)
	if err != nil {
		t.Fatal(err)
	}
	checkLots(t, third, []wantLot{
		{utc: "2018-01-01", total: "1", used: "0", remaining: "1"},
	})
}

func TestLotsFromIncome(t *testing.T) {
	// A debit paired against an income account opens a lot even
	// without a trade.
	as := buildLedger(t, TransactionSpec{
		UTC:     "2018-04-01",
		Account: AccountRef{Credit: "income:mining", Debit: "exchange"},
		Entries: []PostingSpec{{Shortcut: "10 GIN"}},
	})
	lots, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	checkLots(t, lots, []wantLot{
		{utc: "2018-04-01", total: "10", used: "0", remaining: "10"},
	})
	if lots[0].Currency != "GIN" {
		t.Errorf("got currency %s, want GIN", lots[0].Currency)
	}
}

func TestFiatNeverOpensLots(t *testing.T) {
	as := buildLedger(t,
		trade("2018-01-01", "equity", "exchange", "1 BTC @ $1000"),
	)
	lots, err := as.Lots(testCurrencies(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range lots {
		if l.Currency == "USD" {
			t.Error("fiat credit side must not open a lot")
		}
	}
}

func TestCreateBalancingEntries(t *testing.T) {
	specs := testAccounts()
	assets := specs["assets"]
	wallet := assets.Children["wallet"]
	wallet.Balancing = "equity"
	assets.Children["wallet"] = wallet
	specs["assets"] = assets

	as := NewAccounts(specs)
	trans, err := NewTransaction(TransactionSpec{
		UTC:     "2018-05-01",
		Account: AccountRef{Credit: "exchange", Debit: "assets:wallet"},
		Entries: []PostingSpec{{Shortcut: "=2 BTC"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if warnings := trans.ApplyToAccounts(as); len(warnings) > 0 {
		t.Fatal(warnings)
	}
	if err := as.CreateBalancingEntries(); err != nil {
		t.Fatal(err)
	}
	equity, err := as.Get("equity")
	if err != nil {
		t.Fatal(err)
	}
	if len(equity.Entries) != 1 {
		t.Fatalf("got %d balancing entries, want 1", len(equity.Entries))
	}
	b := equity.Entries[0]
	if b.Side != Credit || !b.Virtual {
		t.Error("balancing entry must be a virtual credit")
	}
	if !b.Quantity.Equal(decimal.RequireFromString("2")) || b.Currency != "BTC" {
		t.Errorf("balancing entry: got %s %s, want 2 BTC", b.Quantity, b.Currency)
	}
	if len(trans.Entries) != 3 {
		t.Errorf("got %d transaction entries, want 3", len(trans.Entries))
	}

	// A second run must not duplicate the entries.
	if err := as.CreateBalancingEntries(); err != nil {
		t.Fatal(err)
	}
	if len(equity.Entries) != 1 {
		t.Errorf("second run duplicated balancing entries: %d", len(equity.Entries))
	}
}

func TestCreateBalancingEntriesBadTarget(t *testing.T) {
	specs := testAccounts()
	specs["broken"] = AccountSpec{Balancing: "nope"}
	as := NewAccounts(specs)
	if err := as.CreateBalancingEntries(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, ErrNotFound)
	}
}
