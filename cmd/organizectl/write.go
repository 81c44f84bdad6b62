package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"organize/internal/core"
	"organize/internal/report"
	"organize/internal/services"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var (
		to     string
		months int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an xlsx workbook with one sheet per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			last, err := monthFlag(to)
			if err != nil {
				return err
			}
			if months < 1 || months > 36 {
				return errors.New("--months must be between 1 and 36")
			}
			keys := make([]core.MonthKey, 0, months)
			for i := months - 1; i >= 0; i-- {
				keys = append(keys, last.Add(-i))
			}
			if out == "" {
				out = fmt.Sprintf("organize-%s.xlsx", last)
			}

			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, w io.Writer) error {
				snap, err := svc.Snapshot(ctx)
				if err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				if err := report.Export(f, snap, keys); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", out, err)
				}
				fmt.Fprintf(w, "wrote %s (%s to %s)\n", out, keys[0], last)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Last month as YYYY-MM (default current month)")
	cmd.Flags().IntVarP(&months, "months", "n", 3, "Number of months ending at --to")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default organize-<to>.xlsx)")
	return cmd
}

func newTransferCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <month>",
		Short: "Carry a month's positive balance into the next month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, out io.Writer) error {
				res, err := svc.TransferBalance(ctx, m)
				if err != nil {
					return err
				}
				for _, t := range res.Transactions {
					fmt.Fprintf(out, "%s  %-10s  %s  %s\n", t.Month, t.Type, t.Amount.BRL(), t.Description)
				}
				return nil
			})
		},
	}
}
