package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okane-app/okane/internal/budget"
	"github.com/okane-app/okane/internal/cli"
	"github.com/okane-app/okane/internal/config"
	"github.com/okane-app/okane/internal/model"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage budgets and check progress",
	}

	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(addBudgetCmd())
	cmd.AddCommand(budgetProgressCmd())
	cmd.AddCommand(deleteBudgetCmd())

	return cmd
}

func listBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			budgets, err := store.ListBudgets(ctx, config.UserID())
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}

			if len(budgets) == 0 {
				fmt.Println(cli.FormatInfo("No budgets found. Use 'okane budgets add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Name"),
				cli.HeaderStyle.Render("Amount"),
				cli.HeaderStyle.Render("Period"),
				cli.HeaderStyle.Render("Categories"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 8),
				strings.Repeat("-", 16),
				strings.Repeat("-", 12),
				strings.Repeat("-", 8),
				strings.Repeat("-", 12))

			for _, b := range budgets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					b.ID[:8], b.Name, b.Amount.StringFixed(2), b.Period, len(b.CategoryIDs))
			}
			return nil
		},
	}
}

func addBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a budget",
		Example: `  okane budgets add groceries --amount 40000 --category food --category household
  okane budgets add yearly-travel --amount 300000 --period yearly --start 2026-01-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amountStr, _ := cmd.Flags().GetString("amount")
			period, _ := cmd.Flags().GetString("period")
			startStr, _ := cmd.Flags().GetString("start")
			endStr, _ := cmd.Flags().GetString("end")
			categories, _ := cmd.Flags().GetStringSlice("category")
			thresholdStr, _ := cmd.Flags().GetString("notify-at")
			rollover, _ := cmd.Flags().GetBool("rollover")

			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			start, err := parseDate(startStr)
			if err != nil {
				return err
			}

			b := &model.Budget{
				UserID:      config.UserID(),
				Name:        args[0],
				Amount:      amount,
				Currency:    currencyOrDefault(""),
				Period:      model.BudgetPeriod(period),
				StartDate:   start,
				CategoryIDs: categories,
				Rollover:    rollover,
			}
			if endStr != "" {
				if b.EndDate, err = parseDate(endStr); err != nil {
					return err
				}
			}
			if thresholdStr != "" {
				if b.NotifyThreshold, err = parseAmount(thresholdStr); err != nil {
					return err
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.CreateBudget(ctx, b)
			if err != nil {
				return fmt.Errorf("failed to create budget: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created budget %q (%s)", b.Name, id[:8])))
			return nil
		},
	}

	cmd.Flags().String("amount", "", "budget ceiling (required)")
	cmd.Flags().StringP("period", "p", "monthly", "period (monthly, yearly)")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD, open-ended if omitted)")
	cmd.Flags().StringSliceP("category", "c", nil, "category id covered by the budget (repeatable, required)")
	cmd.Flags().String("notify-at", "", "alert threshold as a percentage, e.g. 80")
	cmd.Flags().Bool("rollover", false, "roll unused budget into the next period")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func budgetProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress [id]",
		Short: "Show how much of a budget has been spent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			progress, err := budget.EvaluateFromStore(ctx, store, args[0], time.Now())
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(cli.ChartIcon + " Budget progress"))
			fmt.Printf("  Budget:    %s\n", progress.BudgetAmount.StringFixed(2))
			fmt.Printf("  Spent:     %s\n", progress.Spent.StringFixed(2))
			fmt.Printf("  Remaining: %s\n", cli.FormatAmount(progress.Remaining))
			if progress.Undefined {
				fmt.Printf("  Used:      %s\n", cli.SubtleStyle.Render("undefined (zero budget)"))
				return nil
			}
			fmt.Printf("  Used:      %s%%\n", progress.PercentUsed.StringFixed(1))
			if progress.Alert {
				fmt.Println(cli.FormatWarning("Notification threshold reached"))
			}
			return nil
		},
	}
}

func deleteBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteBudget(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete budget: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Budget deleted"))
			return nil
		},
	}
}
