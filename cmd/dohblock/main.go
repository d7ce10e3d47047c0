// SPDX-License-Identifier: GPL-3.0-or-later

// Command dohblock measures DNS-level blocking by DoH resolvers.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/bassosimone/dohblock/internal/app"
	"github.com/charmbracelet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.Run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal("dohblock terminated", "error", err)
	}
}
