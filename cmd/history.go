package cmd

import (
	"context"
	"fmt"
	"iter"
	"text/tabwriter"
	"time"

	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	historyFilter history.Filter
	historyAction string
)

var historyCmd = &cobra.Command{
	Use:   "history [search]",
	Short: "Print the key movement log, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			historyFilter.Text = args[0]
		}
		if historyAction != "" {
			historyFilter.Action = history.Action(historyAction)
			if !historyFilter.Action.Valid() {
				return fmt.Errorf("unknown action %q, expected taken or returned", historyAction)
			}
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		l, err := ledger.Open(ctx, store, ledgerOptions(cfg, logger.L())...)
		if err != nil {
			return err
		}

		return printHistory(cmd, l.QueryHistory(historyFilter))
	},
}

func printHistory(cmd *cobra.Command, records iter.Seq[history.Record]) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tKEY\tBARCODE\tHOLDER")
	for r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Action, r.KeyName, r.KeyBarcode, r.UserName)
	}
	return tw.Flush()
}

func init() {
	historyCmd.Flags().StringVar(&historyFilter.Barcode, "barcode", "", "only this barcode")
	historyCmd.Flags().StringVar(&historyFilter.Holder, "holder", "", "only this holder (display name)")
	historyCmd.Flags().StringVar(&historyAction, "action", "", "taken or returned")
	historyCmd.Flags().IntVarP(&historyFilter.Limit, "limit", "n", 0, "at most n records")
}
