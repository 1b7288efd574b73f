package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okane-app/okane/internal/cli"
	"github.com/okane-app/okane/internal/config"
	"github.com/okane-app/okane/internal/model"
	"github.com/okane-app/okane/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Save and run reports",
		Long: `Save report definitions and execute them.

A report filters transactions by date range, accounts, categories and
tags, then buckets them by day, week, month, year or category.`,
	}

	cmd.AddCommand(saveReportCmd())
	cmd.AddCommand(runReportCmd())
	cmd.AddCommand(listReportsCmd())

	return cmd
}

func reportFlagSet(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", "expense", "report type (expense, income, balance, budget)")
	cmd.Flags().StringP("group-by", "g", "month", "grouping (day, week, month, year, category)")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringSliceP("account", "a", nil, "filter by account id (repeatable)")
	cmd.Flags().StringSliceP("category", "c", nil, "filter by category id (repeatable)")
	cmd.Flags().StringSlice("tag", nil, "filter by tag (repeatable)")
	cmd.Flags().StringSlice("tx-type", nil,
		"restrict to transaction types (income, expense, transfer; repeatable). Balance reports skip transfers unless named here")
}

func reportFromFlags(cmd *cobra.Command, name string) (*model.Report, error) {
	reportType, _ := cmd.Flags().GetString("type")
	groupBy, _ := cmd.Flags().GetString("group-by")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	accounts, _ := cmd.Flags().GetStringSlice("account")
	categories, _ := cmd.Flags().GetStringSlice("category")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	txTypes, _ := cmd.Flags().GetStringSlice("tx-type")

	var types []model.TransactionType
	for _, t := range txTypes {
		txnType := model.TransactionType(t)
		if !txnType.ValidType() {
			return nil, fmt.Errorf("invalid transaction type %q", t)
		}
		types = append(types, txnType)
	}

	rpt := &model.Report{
		UserID:  config.UserID(),
		Name:    name,
		Type:    model.ReportType(reportType),
		GroupBy: model.GroupBy(groupBy),
		Filters: model.ReportFilters{
			AccountIDs:  accounts,
			CategoryIDs: categories,
			Tags:        tags,
			Types:       types,
		},
	}

	var err error
	if fromStr != "" {
		if rpt.StartDate, err = parseDate(fromStr); err != nil {
			return nil, err
		}
	}
	if toStr != "" {
		if rpt.EndDate, err = parseDate(toStr); err != nil {
			return nil, err
		}
	}
	return rpt, rpt.Validate()
}

func saveReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save a report definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rpt, err := reportFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.SaveReport(ctx, rpt)
			if err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved report %q (%s)", rpt.Name, id[:8])))
			return nil
		},
	}

	reportFlagSet(cmd)
	return cmd
}

func runReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [saved-report-id]",
		Short: "Run a report",
		Long: `Execute a report and print its summary. With an argument, runs a
saved report; without one, builds the report from flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var rpt *model.Report
			if len(args) == 1 {
				if rpt, err = store.GetReport(ctx, args[0]); err != nil {
					return err
				}
			} else {
				if rpt, err = reportFromFlags(cmd, "ad hoc"); err != nil {
					return err
				}
			}

			summary, err := report.Run(ctx, store, rpt)
			if err != nil {
				return err
			}

			printSummary(rpt, &summary)
			return nil
		},
	}

	reportFlagSet(cmd)
	return cmd
}

func printSummary(rpt *model.Report, summary *model.Summary) {
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%s %s report, by %s", cli.ChartIcon, rpt.Type, rpt.GroupBy)))

	keys := make([]string, 0, len(summary.Grouped))
	for key := range summary.Grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n",
		cli.HeaderStyle.Render("Group"),
		cli.HeaderStyle.Render("Amount"))
	fmt.Fprintf(w, "%s\t%s\n", strings.Repeat("-", 12), strings.Repeat("-", 12))
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\n", key, cli.FormatAmount(summary.Grouped[key]))
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %s\n", cli.FormatAmount(summary.TotalAmount))
	if len(summary.Trends) > 0 {
		last := summary.Trends[len(summary.Trends)-1]
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d trend points through %s",
			len(summary.Trends), last.Date.Format("2006-01-02"))))
	}
}

func listReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reports, err := store.ListReports(ctx, config.UserID())
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}

			if len(reports) == 0 {
				fmt.Println(cli.FormatInfo("No saved reports. Use 'okane report save' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Type"),
				cli.HeaderStyle.Render("Group by"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 8),
				strings.Repeat("-", 16),
				strings.Repeat("-", 8),
				strings.Repeat("-", 8))

			for _, rpt := range reports {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rpt.ID[:8], rpt.Name, rpt.Type, rpt.GroupBy)
			}
			return nil
		},
	}
}
