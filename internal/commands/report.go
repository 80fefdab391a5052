package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
)

const dateLayout = "2006-01-02"

func newReportCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Trading reports",
	}
	cmd.AddCommand(newReportSummaryCommand(s))
	return cmd
}

// dateRange parses --from/--to as calendar days; --to is inclusive.
func dateRange(from, to string) (interfaces.DateRange, error) {
	var r interfaces.DateRange
	if from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return r, fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
		}
		r.From = t
	}
	if to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return r, fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
		}
		r.To = t.AddDate(0, 0, 1)
	}
	return r, nil
}

func newReportSummaryCommand(s *session) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Sales, profit, expenses and balances for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := dateRange(from, to)
			if err != nil {
				return err
			}
			a, err := s.App()
			if err != nil {
				return err
			}
			sum, err := a.ReportService.Summary(cmd.Context(), r)
			if err != nil {
				return err
			}

			money := a.Config.FormatMoney
			period := "all time"
			if from != "" || to != "" {
				period = fmt.Sprintf("%s to %s", orDash(from), orDash(to))
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Period\t%s\n", period)
			fmt.Fprintf(tw, "Sales\t%s\t(%d invoices)\n", money(sum.SalesTotal), sum.SalesCount)
			fmt.Fprintf(tw, "  Discounts\t%s\n", money(sum.DiscountTotal))
			fmt.Fprintf(tw, "  Collected\t%s\n", money(sum.CollectedTotal))
			fmt.Fprintf(tw, "  Service revenue\t%s\n", money(sum.ServiceRevenue))
			fmt.Fprintf(tw, "Cost of goods\t%s\n", money(sum.CostOfGoods))
			fmt.Fprintf(tw, "Gross profit\t%s\n", money(sum.GrossProfit))
			fmt.Fprintf(tw, "Expenses\t%s\n", money(sum.ExpensesTotal))

			cats := make([]string, 0, len(sum.ExpensesByCat))
			for c := range sum.ExpensesByCat {
				cats = append(cats, c)
			}
			sort.Strings(cats)
			for _, c := range cats {
				fmt.Fprintf(tw, "  %s\t%s\n", c, money(sum.ExpensesByCat[c]))
			}

			fmt.Fprintf(tw, "Net profit\t%s\n", money(sum.NetProfit))
			fmt.Fprintf(tw, "Purchases\t%s\t(%d bills)\n", money(sum.PurchasesTotal), sum.PurchasesCount)
			fmt.Fprintf(tw, "Warranty claims\t%d\n", sum.ClaimsCount)
			fmt.Fprintf(tw, "Receivables\t%s\n", money(sum.Receivables))
			fmt.Fprintf(tw, "Payables\t%s\n", money(sum.Payables))
			fmt.Fprintf(tw, "Open repairs\t%d\n", sum.OpenRepairsCount)
			fmt.Fprintf(tw, "Low stock\t%d products\n", len(sum.LowStock))
			for _, p := range sum.LowStock {
				fmt.Fprintf(tw, "  %s\t%s\t%d left\n", p.SKU, p.Name, p.Stock)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day (inclusive), YYYY-MM-DD")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
