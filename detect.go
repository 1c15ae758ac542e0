package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nfcplay/cards"
	"nfcplay/dispatch"
	"nfcplay/reader"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the UID of each card put on the reader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			r, err := reader.New(cfg.Reader)
			if err != nil {
				return fmt.Errorf("init reader: %w", err)
			}
			defer r.Close()

			table := labelTable(cfg.Cards)

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for cards, Ctrl-C to stop")
			return detect(signalCtx, r, dispatch.NewDebouncer(cfg.rearmAfter()), table, cmd.OutOrStdout())
		},
	}
}

// detect prints one line per debounced card until ctx is done.
func detect(ctx context.Context, src dispatch.Source, debounce *dispatch.Debouncer, table *cards.Table, w io.Writer) error {
	for {
		uid, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read card: %w", err)
		}
		if !debounce.Observe(uid) {
			continue
		}
		if entry, ok := table.Lookup(uid); ok {
			fmt.Fprintf(w, "%s\t%s\n", uid, entry.Name)
		} else {
			fmt.Fprintf(w, "%s\t(not enrolled)\n", uid)
		}
	}
}

// labelTable loads the table used to name detected cards. detect works
// without one, so a table that does not load is logged and replaced by an
// empty one.
func labelTable(path string) *cards.Table {
	table, err := cards.Load(path)
	if err != nil {
		log.Printf("Card table: %v", err)
		table, _ = cards.New(nil)
	}
	return table
}
