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

package gains

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sboehler/coinbook/cmd/flags"
	"github.com/sboehler/coinbook/lib/book"
	"github.com/sboehler/coinbook/lib/common/table"
	"github.com/sboehler/coinbook/lib/journal"
)

// CreateCmd creates the command.
func CreateCmd() *cobra.Command {

	var r runner

	c := &cobra.Command{
		Use:   "gains",
		Short: "compute capital gains",
		Long: `Compute realized capital gains per lot application, or the unrealized
gains of the remaining open lots at a valuation date.`,
		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run:  r.run,
	}
	r.setupFlags(c)
	return c
}

type runner struct {
	fiat         string
	gainsAccount string
	lifo         bool
	within       time.Duration
	from, to     flags.DateFlag
	unrealized   flags.DateFlag
	csv, color   bool
	digits       int32
}

func (r *runner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", err.Error())
		os.Exit(1)
	}
}

func (r *runner) setupFlags(c *cobra.Command) {
	c.Flags().StringVarP(&r.fiat, "fiat", "f", "USD", "fiat currency for valuation")
	c.Flags().StringVar(&r.gainsAccount, "gains-account", "income:capital-gains", "account receiving gain entries")
	c.Flags().BoolVar(&r.lifo, "lifo", false, "match credits against the newest open lot first")
	c.Flags().DurationVar(&r.within, "within", 0, "maximum distance for price lookups (0: unbounded)")
	c.Flags().Var(&r.from, "from", "include only sales on or after this date")
	c.Flags().Var(&r.to, "to", "include only sales on or before this date")
	c.Flags().Var(&r.unrealized, "unrealized", "report unrealized gains at this valuation date")
	c.Flags().BoolVar(&r.csv, "csv", false, "render as CSV")
	c.Flags().BoolVar(&r.color, "color", true, "print output in color")
	c.Flags().Int32Var(&r.digits, "digits", 2, "round to number of digits")
}

func (r *runner) execute(cmd *cobra.Command, args []string) error {
	j, err := journal.FromPath(args[0])
	if err != nil {
		return err
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	if !r.unrealized.Value().IsZero() {
		return r.renderUnrealized(j, out)
	}
	return r.renderRealized(j, out)
}

func (r *runner) renderRealized(j *journal.Journal, w io.Writer) error {
	details, err := j.CapitalGainsDetails(r.fiat, r.within, r.lifo, r.from.Value(), r.to.Value())
	if err != nil {
		return err
	}
	tbl := table.New(1, 2, 1, 2, 3)
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Purchased", table.Center).
		AddText("Sold", table.Center).
		AddText("Account", table.Center).
		AddText("Currency", table.Center).
		AddText("Quantity", table.Center).
		AddText("Cost", table.Center).
		AddText("Proceeds", table.Center).
		AddText("Profit", table.Center).
		FillEmpty()
	tbl.AddSeparatorRow()
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Profit)
		tbl.AddRow().
			AddText(d.PurchaseUTC.Format("2006-01-02"), table.Left).
			AddText(d.SaleUTC.Format("2006-01-02"), table.Left).
			AddText(d.Account, table.Left).
			AddText(d.Currency, table.Left).
			AddNumber(d.Quantity).
			AddNumber(d.Cost).
			AddNumber(d.Proceeds).
			AddNumber(d.Profit).
			FillEmpty()
	}
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Total", table.Left).
		AddEmpty().AddEmpty().
		AddText(r.fiat, table.Left).
		AddEmpty().AddEmpty().AddEmpty().
		AddNumber(total).
		FillEmpty()
	tbl.AddSeparatorRow()
	if err := r.renderTable(tbl, w); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Realized: %s\n", formatFiat(total, r.fiat))
	return err
}

func (r *runner) renderUnrealized(j *journal.Journal, w io.Writer) error {
	entries, err := j.UnrealizedGains(r.unrealized.Value(), r.fiat, r.gainsAccount, r.within, r.lifo)
	if err != nil {
		return err
	}
	tbl := table.New(1, 2, 2)
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Date", table.Center).
		AddText("Account", table.Center).
		AddText("Currency", table.Center).
		AddText("Side", table.Center).
		AddText("Quantity", table.Center).
		FillEmpty()
	tbl.AddSeparatorRow()
	total := decimal.Zero
	for _, e := range entries {
		q := e.Quantity
		if e.Side == book.Credit {
			q = q.Neg()
		}
		total = total.Add(q)
		tbl.AddRow().
			AddText(e.Trans.UTC.Format("2006-01-02"), table.Left).
			AddText(e.Account, table.Left).
			AddText(e.Currency, table.Left).
			AddText(e.Side.String(), table.Left).
			AddNumber(e.Quantity).
			FillEmpty()
	}
	tbl.AddSeparatorRow()
	if err := r.renderTable(tbl, w); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Unrealized: %s\n", formatFiat(total, r.fiat))
	return err
}

func (r *runner) renderTable(tbl *table.Table, w io.Writer) error {
	if r.csv {
		renderer := table.CSVRenderer{}
		return renderer.Render(tbl, w)
	}
	renderer := table.TextRenderer{Color: r.color, Round: r.digits}
	return renderer.Render(tbl, w)
}

// formatFiat renders a decimal total in the fiat currency's
// conventional format. Unknown codes fall back to a plain rendering.
func formatFiat(total decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return fmt.Sprintf("%s %s", total.StringFixed(2), code)
	}
	minor := total.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
