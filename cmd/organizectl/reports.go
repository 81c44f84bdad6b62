package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/services"
)

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Month totals, expense categories and card invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := monthFlag(month)
			if err != nil {
				return err
			}
			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, out io.Writer) error {
				summary, err := svc.MonthSummary(ctx, m)
				if err != nil {
					return err
				}
				printSummary(out, summary)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default current month)")
	return cmd
}

func printSummary(out io.Writer, s services.MonthSummary) {
	fmt.Fprintf(out, "\n  %s\n\n", s.Totals.Month)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "  Income\t%s\t\n", s.Totals.Income.BRL())
	fmt.Fprintf(tw, "  Expenses\t%s\t\n", s.Totals.Expenses.BRL())
	fmt.Fprintf(tw, "  Investments\t%s\t\n", s.Totals.Investments.BRL())
	fmt.Fprintf(tw, "  Balance\t%s\t\n", s.Totals.Balance.BRL())
	tw.Flush()

	if len(s.Categories) > 0 {
		fmt.Fprintln(out, "\n  Expenses by category")
		printSlices(out, s.Categories)
	}
	if len(s.Cards) > 0 {
		fmt.Fprintln(out, "\n  Cards")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range s.Cards {
			fmt.Fprintf(tw, "  %s\t%s\tavailable %s\t%.2f%% used\n",
				c.Card.Name, c.Invoice.Amount.BRL(), c.Available.BRL(), c.UsedPercent)
		}
		tw.Flush()
	}
}

func printSlices(out io.Writer, slices []core.CategoryAmount) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range slices {
		fmt.Fprintf(tw, "  %s\t%s\t%.2f%%\n", c.Name, c.Amount.BRL(), c.Percent)
	}
	tw.Flush()
}

func newInvoiceCmd(flags *rootFlags) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "invoice <card-id>",
		Short: "A card's invoice and the three invoices after it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m core.MonthKey
			if month != "" {
				var err error
				if m, err = core.ParseMonthKey(month); err != nil {
					return err
				}
			}
			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, out io.Writer) error {
				status, err := svc.CardInvoices(ctx, args[0], m)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n  %s (closes day %d, due day %d)\n\n",
					status.Card.Name, status.Card.ClosingDay, status.Card.DueDay)
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "  %s\t%s\t(open)\n", status.Invoice.Month, status.Invoice.Amount.BRL())
				for _, inv := range status.Future {
					fmt.Fprintf(tw, "  %s\t%s\t\n", inv.Month, inv.Amount.BRL())
				}
				tw.Flush()
				fmt.Fprintf(out, "\n  Limit %s, available %s\n", status.Card.Limit.BRL(), status.Available.BRL())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Invoice month as YYYY-MM (default the invoice open today)")
	return cmd
}

func newBreakdownCmd(flags *rootFlags) *cobra.Command {
	var month, typ, category string
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Share of each type or category in the selected records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := ledger.BreakdownFilter{
				Type:     core.TransactionType(strings.ToLower(typ)),
				Category: category,
			}
			if month != "" {
				m, err := core.ParseMonthKey(month)
				if err != nil {
					return err
				}
				filter.Month = m
			}
			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, out io.Writer) error {
				res, err := svc.Breakdown(ctx, filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n  Total %s\n\n", res.Total.BRL())
				printSlices(out, res.Slices)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default all months)")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "income, expense or investment (default all types)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only this category")
	return cmd
}

func newIntegrityCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Report records and groups that break the ledger invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLedger(cmd, flags, func(ctx context.Context, svc *services.LedgerService, out io.Writer) error {
				violations, err := svc.Integrity(ctx)
				if err != nil {
					return err
				}
				if len(violations) == 0 {
					fmt.Fprintln(out, "ledger is consistent")
					return nil
				}
				for _, v := range violations {
					fmt.Fprintf(out, "%s\t%s\t%s\n", v.Kind, v.ID, v.Message)
				}
				return fmt.Errorf("%d integrity violations", len(violations))
			})
		},
	}
}
