// Copyright 2020 Silvio Böhler
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

// Package cmd is the main command file for Cobra
package cmd

import (
	"fmt"
	"os"

	"github.com/sboehler/coinbook/cmd/check"
	"github.com/sboehler/coinbook/cmd/gains"
	"github.com/sboehler/coinbook/cmd/lots"
	"github.com/sboehler/coinbook/cmd/prices"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coinbook",
	Short: "coinbook is a cryptocurrency bookkeeping tool",
	Long:  `coinbook keeps double-entry books for cryptocurrency trades and computes cost-basis lots and capital gains.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(check.CreateCmd())
	rootCmd.AddCommand(lots.CreateCmd())
	rootCmd.AddCommand(gains.CreateCmd())
	rootCmd.AddCommand(prices.CreateCmd())
}
