package main

//----------------------------------------------------------------------
// This file is part of friendly.
// Copyright (C) 2011-present, Bernd Fix  >Y<
//
// friendly is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// friendly is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Smoke-test harness for the friendly MPQS factoring core: parses one
// positional decimal argument and prints its two factors. Not a general
// CLI (argument parsing, XML save/restore and benchmarking harnesses are
// explicitly out of scope); it exists only to give the library a runnable
// entry point.
import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"

	"github.com/mrj001/friendly/friendly"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: friendly <odd composite decimal integer>")
		os.Exit(1)
	}
	n, ok := new(big.Int).SetString(os.Args[1], 10)
	if !ok {
		fmt.Fprintln(os.Stderr, "ERROR: not a decimal integer:", os.Args[1])
		os.Exit(1)
	}

	params, strategy := friendly.DefaultParameters(n)
	session, err := friendly.Configure(n, strategy, params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		for ev := range session.Progress() {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Time.Format("15:04:05"), ev.Message)
		}
	}()

	f1, f2, err := session.Factor(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Printf("%s = %s * %s\n", n, f1, f2)
}
