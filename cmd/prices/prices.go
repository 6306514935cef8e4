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

package prices

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/date"
	"github.com/sboehler/coinbook/lib/common/dict"
	"github.com/sboehler/coinbook/lib/common/num"
	"github.com/sboehler/coinbook/lib/price"
)

// CreateCmd creates the command.
func CreateCmd() *cobra.Command {

	var r runner

	c := &cobra.Command{
		Use:   "prices",
		Short: "import prices from CSV",
		Long: `Import a CSV price series into a YAML price file. Rows are merged
into the target file, replacing existing prices of the same pair and date.`,
		Args: cobra.MatchAll(cobra.ExactArgs(2), cobra.OnlyValidArgs),
		Run:  r.run,
	}
	r.setupFlags(c)
	return c
}

type runner struct {
	pair      string
	dateCol   int
	rateCol   int
	header    bool
	latin1    bool
	delimiter string
}

func (r *runner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", err.Error())
		os.Exit(1)
	}
}

func (r *runner) setupFlags(c *cobra.Command) {
	c.Flags().StringVarP(&r.pair, "pair", "p", "", "currency pair of the series, e.g. BTC/USD")
	c.Flags().IntVar(&r.dateCol, "date-col", 0, "column containing the date")
	c.Flags().IntVar(&r.rateCol, "rate-col", 1, "column containing the rate")
	c.Flags().BoolVar(&r.header, "header", true, "skip the first row")
	c.Flags().BoolVar(&r.latin1, "latin1", false, "source file is ISO 8859-1 encoded")
	c.Flags().StringVarP(&r.delimiter, "delimiter", "d", ",", "field delimiter")
	cobra.CheckErr(c.MarkFlagRequired("pair"))
}

func (r *runner) execute(cmd *cobra.Command, args []string) error {
	base, quote, ok := strings.Cut(r.pair, "/")
	if !ok {
		return fmt.Errorf("%w: pair %q is not of the form BASE/QUOTE", price.ErrInvalidTerm, r.pair)
	}
	records, err := r.readRecords(args[0])
	if err != nil {
		return err
	}
	prices, err := readTarget(args[1])
	if err != nil {
		return err
	}
	bar := pb.StartNew(len(records))
	defer bar.Finish()
	for _, rec := range records {
		p, err := r.parseRecord(rec, base, quote)
		if err != nil {
			return err
		}
		prices[p.ID()] = p
		bar.Increment()
	}
	return writeTarget(args[1], prices)
}

func (r *runner) readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var in io.Reader = f
	if r.latin1 {
		in = charmap.ISO8859_1.NewDecoder().Reader(f)
	}
	reader := csv.NewReader(in)
	if r.delimiter != "" {
		reader.Comma = rune(r.delimiter[0])
	}
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if r.header && len(records) > 0 {
		records = records[1:]
	}
	return records, nil
}

func (r *runner) parseRecord(rec []string, base, quote string) (*price.Price, error) {
	if r.dateCol >= len(rec) || r.rateCol >= len(rec) {
		return nil, fmt.Errorf("%w: record %v has no column %d", price.ErrInvalidTerm, rec, max(r.dateCol, r.rateCol))
	}
	utc, err := date.Parse(rec[r.dateCol])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	rate, err := num.Parse(rec[r.rateCol])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	return price.New(utc, base, quote, rate)
}

// readTarget loads the existing price file, keyed by price ID. A
// missing target is an empty series.
func readTarget(path string) (map[string]*price.Price, error) {
	res := make(map[string]*price.Price)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return nil, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.SetStrict(true)
	var specs []priceSpec
	if err := dec.Decode(&specs); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range specs {
		p, err := s.price()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		res[p.ID()] = p
	}
	return res, nil
}

func writeTarget(path string, prices map[string]*price.Price) error {
	sorted := dict.SortedValues(prices, price.Compare)
	doc := make([]yaml.MapSlice, 0, len(sorted))
	for _, p := range sorted {
		obj := yaml.MapSlice{
			{Key: "utc", Value: p.UTC.Format("2006-01-02 15:04:05")},
			{Key: "base", Value: p.Base},
			{Key: "quote", Value: p.Quote},
			{Key: "rate", Value: num.Fixed(p.Rate)},
		}
		if p.Note != "" {
			obj = append(obj, yaml.MapItem{Key: "note", Value: p.Note})
		}
		doc = append(doc, obj)
	}
	bs, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(bs))
}

type priceSpec struct {
	UTC   string `yaml:"utc"`
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
	Rate  string `yaml:"rate"`
	Note  string `yaml:"note"`
}

func (s priceSpec) price() (*price.Price, error) {
	utc, err := date.Parse(s.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	rate, err := num.Parse(s.Rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrInvalidTerm, err)
	}
	p, err := price.New(utc, s.Base, s.Quote, rate)
	if err != nil {
		return nil, err
	}
	p.Note = s.Note
	return p, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
