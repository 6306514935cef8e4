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

package lots

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sboehler/coinbook/cmd/flags"
	"github.com/sboehler/coinbook/lib/book"
	"github.com/sboehler/coinbook/lib/common/filter"
	"github.com/sboehler/coinbook/lib/common/table"
	"github.com/sboehler/coinbook/lib/journal"
)

// CreateCmd creates the command.
func CreateCmd() *cobra.Command {

	var r runner

	c := &cobra.Command{
		Use:   "lots",
		Short: "list cost-basis lots",
		Long:  `Compute the cost-basis lots of the journal and render them as a table.`,
		Args:  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run:   r.run,
	}
	r.setupFlags(c)
	return c
}

type runner struct {
	lifo                 bool
	openOnly             bool
	accounts, currencies flags.RegexFlag
	csv, color           bool
	digits               int32
}

func (r *runner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", err.Error())
		os.Exit(1)
	}
}

func (r *runner) setupFlags(c *cobra.Command) {
	c.Flags().BoolVar(&r.lifo, "lifo", false, "match credits against the newest open lot first")
	c.Flags().BoolVar(&r.openOnly, "open", false, "show only open lots")
	c.Flags().Var(&r.accounts, "account", "filter accounts with a regex")
	c.Flags().Var(&r.currencies, "currency", "filter currencies with a regex")
	c.Flags().BoolVar(&r.csv, "csv", false, "render as CSV")
	c.Flags().BoolVar(&r.color, "color", true, "print output in color")
	c.Flags().Int32Var(&r.digits, "digits", 8, "round to number of digits")
}

func (r *runner) execute(cmd *cobra.Command, args []string) error {
	j, err := journal.FromPath(args[0])
	if err != nil {
		return err
	}
	ls, err := j.Lots(false, r.lifo)
	if err != nil {
		return err
	}
	var (
		byAccount  = filter.ByRegex(r.accounts.Value())
		byCurrency = filter.ByRegex(r.currencies.Value())
		kept       []*book.Lot
	)
	for _, l := range ls {
		if r.openOnly && !l.Open() {
			continue
		}
		if !byAccount(l.Account.Path) || !byCurrency(l.Currency) {
			continue
		}
		kept = append(kept, l)
	}
	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	return r.render(kept, out)
}

func (r *runner) render(ls []*book.Lot, w io.Writer) error {
	tbl := table.New(1, 2, 3)
	tbl.AddSeparatorRow()
	tbl.AddRow().
		AddText("Date", table.Center).
		AddText("Account", table.Center).
		AddText("Currency", table.Center).
		AddText("Total", table.Center).
		AddText("Used", table.Center).
		AddText("Remaining", table.Center)
	tbl.AddSeparatorRow()
	for _, l := range ls {
		tbl.AddRow().
			AddText(l.UTC.Format("2006-01-02"), table.Left).
			AddText(l.Account.Path, table.Left).
			AddText(l.Currency, table.Left).
			AddNumber(l.Total()).
			AddNumber(l.Used()).
			AddNumber(l.Remaining())
	}
	tbl.AddSeparatorRow()
	if r.csv {
		renderer := table.CSVRenderer{}
		return renderer.Render(tbl, w)
	}
	renderer := table.TextRenderer{Color: r.color, Round: r.digits}
	return renderer.Render(tbl, w)
}
