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

package journal

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/price"
)

const testJournal = `
currencies:
  USD:
    fiat: true
  BTC:
    note: Bitcoin
    translation: true
  ETH: {}
  GIN: {}

accounts:
  assets:
    children:
      exchange:
        alias: exchange
      wallet: {}
  equity: {}
  income:
    children:
      capital-gains: {}

prices:
  - 2018-06-16 ETH/USD 600
  - utc: "2018-06-17"
    base: BTC
    quote: USD
    rate: "7000"
  - 2018-06-17 GIN/BTC 0.0001

transactions:
  - utc: 2018-01-01
    account: {credit: equity, debit: exchange}
    trades:
      - 10 ETH @ 400 USD
  - utc: 2018-06-01
    account: {credit: exchange, debit: equity}
    trades:
      - -5 ETH @ 600 USD
`

func buildTestJournal(t *testing.T) *Journal {
	t.Helper()
	src, err := Decode(strings.NewReader(testJournal))
	require.NoError(t, err)
	j, err := Build(src)
	require.NoError(t, err)
	return j
}

func TestBuild(t *testing.T) {
	j := buildTestJournal(t)
	require.Empty(t, j.Warnings)
	require.Len(t, j.Transactions, 2)
	require.True(t, j.IsBalanced())
	require.Equal(t, 6, j.Accounts.Len())
	require.Len(t, j.Currencies, 4)
	require.Equal(t, []string{"BTC/USD", "ETH/USD", "GIN/BTC"}, j.Prices.Pairs())

	// Transactions are sorted by date.
	require.True(t, j.Transactions[0].UTC.Before(j.Transactions[1].UTC))
}

func TestBuildNormalizesAliases(t *testing.T) {
	j := buildTestJournal(t)
	for _, trans := range j.Transactions {
		for _, e := range trans.Entries {
			require.NotEqual(t, "exchange", e.Account, "aliases must normalize to canonical paths")
		}
	}
}

func TestLots(t *testing.T) {
	j := buildTestJournal(t)
	lots, err := j.Lots(false, false)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	l := lots[0]
	require.Equal(t, "ETH", l.Currency)
	require.True(t, l.Total().Equal(decimal.RequireFromString("10")))
	require.True(t, l.Remaining().Equal(decimal.RequireFromString("5")))
}

func TestCapitalGains(t *testing.T) {
	j := buildTestJournal(t)
	entries, err := j.CapitalGains("USD", "income:capital-gains", 0, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// (600 - 400) * 5
	require.True(t, entries[0].Quantity.Equal(decimal.RequireFromString("1000")))
	require.Equal(t, "income:capital-gains", entries[0].Account)
}

func TestCapitalGainsDetails(t *testing.T) {
	j := buildTestJournal(t)
	details, err := j.CapitalGainsDetails("USD", 0, false, date.Date(2018, 6, 1), date.Date(2018, 6, 30))
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.True(t, details[0].Profit.Equal(decimal.RequireFromString("1000")))

	details, err = j.CapitalGainsDetails("USD", 0, false, date.Date(2018, 7, 1), date.Date(2018, 12, 31))
	require.NoError(t, err)
	require.Empty(t, details)
}

func TestUnrealizedGains(t *testing.T) {
	j := buildTestJournal(t)
	p, err := price.FromShortcut("2018-12-01 ETH/USD 700")
	require.NoError(t, err)
	j.Prices.Insert(p)
	entries, err := j.UnrealizedGains(date.Date(2018, 12, 1), "USD", "income:capital-gains", 0, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// (700 - 400) * 5 remaining
	require.True(t, entries[0].Quantity.Equal(decimal.RequireFromString("1500")))
}

func TestTranslatedPriceLookup(t *testing.T) {
	j := buildTestJournal(t)
	p, err := j.Prices.Find(date.Date(2018, 6, 17), "GIN", "USD", 0, j.Currencies.Translations())
	require.NoError(t, err)
	// 0.0001 GIN/BTC * 7000 BTC/USD
	require.True(t, p.Rate.Equal(decimal.RequireFromString("0.7")))
	require.Equal(t, []string{"GIN/BTC", "BTC/USD"}, p.TranslationChain)
}

func TestBuildWarnsOnUnknownAccount(t *testing.T) {
	src, err := Decode(strings.NewReader(`
currencies:
  USD:
    fiat: true
  BTC: {}
accounts:
  equity: {}
transactions:
  - utc: 2018-01-01
    account: {credit: equity, debit: nowhere}
    trades:
      - 1 BTC @ $7000
`))
	require.NoError(t, err)
	j, err := Build(src)
	require.NoError(t, err)
	require.Len(t, j.Warnings, 1)
	require.Contains(t, j.Warnings[0], "nowhere")
}

func TestBuildWarnsOnBadTrade(t *testing.T) {
	src, err := Decode(strings.NewReader(`
currencies:
  USD:
    fiat: true
accounts:
  equity: {}
transactions:
  - utc: 2018-01-01
    account: equity
    trades:
      - total nonsense here
`))
	require.NoError(t, err)
	j, err := Build(src)
	require.NoError(t, err)
	require.Len(t, j.Transactions, 1)
	require.Len(t, j.Warnings, 1)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`
bogus: field
`))
	require.Error(t, err)
}

func TestBuildFailsOnMissingUTC(t *testing.T) {
	src, err := Decode(strings.NewReader(`
accounts:
  equity: {}
transactions:
  - account: equity
`))
	require.NoError(t, err)
	_, err = Build(src)
	require.Error(t, err)
}

func TestBuildFailsOnBadPrice(t *testing.T) {
	src, err := Decode(strings.NewReader(`
prices:
  - 2018-06-17 BTCUSD 7000
`))
	require.NoError(t, err)
	_, err = Build(src)
	require.Error(t, err)
}
