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

package check

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sboehler/coinbook/lib/journal"
)

// CreateCmd creates the command.
func CreateCmd() *cobra.Command {

	var r runner

	c := &cobra.Command{
		Use:   "check",
		Short: "check journal files",
		Long:  `Load the given journal files, report warnings and verify that every transaction is balanced.`,
		Args:  cobra.MinimumNArgs(1),
		Run:   r.run,
	}
	r.setupFlags(c)
	return c
}

type runner struct {
	quiet bool
}

func (r *runner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", err.Error())
		os.Exit(1)
	}
}

func (r *runner) setupFlags(c *cobra.Command) {
	c.Flags().BoolVarP(&r.quiet, "quiet", "q", false, "suppress warnings")
}

func (r *runner) execute(cmd *cobra.Command, args []string) error {
	var (
		g  errgroup.Group
		mu sync.Mutex
		js = make(map[string]*journal.Journal, len(args))
	)
	for _, path := range args {
		path := path
		g.Go(func() error {
			j, err := journal.FromPath(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			js[path] = j
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	var (
		yellow = color.New(color.FgYellow)
		red    = color.New(color.FgRed)
		out    = cmd.OutOrStdout()
		failed bool
	)
	for _, path := range args {
		j := js[path]
		if !r.quiet {
			for _, w := range j.Warnings {
				yellow.Fprintf(out, "%s: warning: %s\n", path, w)
			}
		}
		if !j.IsBalanced() {
			failed = true
			for _, t := range j.Transactions {
				if !t.IsBalanced() {
					red.Fprintf(out, "%s: unbalanced transaction %s (%s)\n", path, t.ID, t.UTC.Format("2006-01-02"))
				}
			}
			continue
		}
		fmt.Fprintf(out, "%s: ok (%d transactions, %d accounts)\n", path, len(j.Transactions), j.Accounts.Len())
	}
	if failed {
		return fmt.Errorf("check failed")
	}
	return nil
}
